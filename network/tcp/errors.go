package tcp

import (
	"errors"
	"fmt"

	"github.com/YiuTerran/go-director/network/datagram"
)

var (
	// ErrMsgTooLong 同时也是datagram.ErrCapacityExceeded
	ErrMsgTooLong     = fmt.Errorf("message too long: %w", datagram.ErrCapacityExceeded)
	ErrMsgTooShort    = errors.New("message too short")
	ErrBufferOverflow = errors.New("receive buffer overflow")
	ErrWriteQueueFull = errors.New("write queue full")
	ErrConnClosed     = errors.New("connection closed")
)
