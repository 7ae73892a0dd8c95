package log

import (
	"fmt"
	"sort"
	"strings"
)

// Fields 上下文结构，方便在结构体之间传递信息
// 模仿logrus，非线程安全
type Fields map[string]any

const (
	prefixKey = "__prefix__"
)

func (f Fields) String() string {
	keys := make([]string, 0, len(f))
	for k := range f {
		if k != prefixKey {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	str := make([]string, 0, len(f))
	if prefix := f.Prefix(); prefix != "" {
		str = append(str, fmt.Sprintf("[%v]", prefix))
	}
	for _, k := range keys {
		str = append(str, fmt.Sprintf("%s=%+v", k, f[k]))
	}
	return strings.Join(str, " ")
}

func (f Fields) prepend(format string) string {
	return f.String() + ", " + format
}

func (f Fields) WithPrefix(prefix string) Fields {
	return MergeFields(f, Fields{prefixKey: prefix})
}

// MergeFields 合并，至少有一个参数，结果不影响原来的数据
// 不要直接修改f，防止并发问题
func MergeFields(f Fields, fields ...Fields) Fields {
	all := make(Fields, len(f))
	for k, v := range f {
		all[k] = v
	}
	for _, field := range fields {
		for k, v := range field {
			all[k] = v
		}
	}
	return all
}

func (f Fields) WithFields(fields ...Fields) Fields {
	return MergeFields(f, fields...)
}

func (f Fields) Prefix() string {
	prefix, ok := f[prefixKey]
	if ok {
		return prefix.(string)
	}
	return ""
}

// fieldLogger 在每条日志前加上Fields
type fieldLogger struct {
	parent Logger
	fields Fields
}

func (fl *fieldLogger) Debug(format string, a ...any) {
	fl.parent.Debug(fl.fields.prepend(format), a...)
}

func (fl *fieldLogger) Info(format string, a ...any) {
	fl.parent.Info(fl.fields.prepend(format), a...)
}

func (fl *fieldLogger) Warn(format string, a ...any) {
	fl.parent.Warn(fl.fields.prepend(format), a...)
}

func (fl *fieldLogger) Error(format string, a ...any) {
	fl.parent.Error(fl.fields.prepend(format), a...)
}

func (fl *fieldLogger) With(fields Fields) Logger {
	return &fieldLogger{parent: fl.parent, fields: MergeFields(fl.fields, fields)}
}

func (fl *fieldLogger) Sync() error {
	return fl.parent.Sync()
}
