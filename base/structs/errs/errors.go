package errs

import "fmt"

/**  管理接口返回的错误
  *  @author tryao
  *  @date 2022/03/18 10:33
**/

const (
	OK           = 0
	UnknownError = 1
	ParamError   = 10
	NotAllowed   = 11
	NotExist     = 15
)

var (
	statusMap = map[int]int{
		OK:           200,
		UnknownError: 500,
		NotAllowed:   403,
		NotExist:     404,
	}
)

// GetHttpStatus 业务错误码对应的http状态码，默认400
func GetHttpStatus(status int) int {
	r, ok := statusMap[status]
	if !ok {
		return 400
	}
	return r
}

type Error struct {
	Msg    string `json:"msg"`
	Status int    `json:"status"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("status:%d, msg:%s", e.Status, e.Msg)
}
