package director

import (
	"errors"
	"fmt"
)

var (
	ErrUnknownControlCode  = errors.New("unknown control code")
	ErrTooManyDestinations = errors.New("too many destinations")
	ErrDirectorClosed      = errors.New("director closed")
)

// UnknownControlCodeError 控制通道收到了无法识别的类型
type UnknownControlCodeError struct {
	Code uint16
}

func (e *UnknownControlCodeError) Error() string {
	return fmt.Sprintf("%v: %d", ErrUnknownControlCode, e.Code)
}

func (e *UnknownControlCodeError) Is(target error) bool {
	return target == ErrUnknownControlCode
}
