package datagram

import (
	"errors"
	"fmt"
)

var (
	ErrUnderflow        = errors.New("datagram: read past end of data")
	ErrInvalidText      = errors.New("datagram: invalid utf-8 text")
	ErrCapacityExceeded = errors.New("datagram: capacity exceeded")
)

// DecodeError 解析失败的位置
type DecodeError struct {
	Op     string
	Offset int
	Err    error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s at offset %d: %v", e.Op, e.Offset, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// IsDecodeError 是否是数据格式错误
func IsDecodeError(err error) bool {
	var de *DecodeError
	return errors.As(err, &de)
}
