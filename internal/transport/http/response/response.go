package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type Resp struct {
	Code  int         `json:"code"`
	Msg   string      `json:"msg"`
	Data  interface{} `json:"data"`
	Error string      `json:"error,omitempty"`
}

// New 构造函数（保证 data 不为 null）
func New(code int, msg string, data interface{}) Resp {
	if data == nil {
		data = struct{}{}
	}
	return Resp{Code: code, Msg: msg, Data: data}
}

// OK 成功响应
func OK(data interface{}) Resp {
	return New(CodeOK, CodeMsgMap[CodeOK], data)
}

// Error 失败响应；msg 为默认文案，error 为具体原因
func Error(code int, detail string) Resp {
	r := New(code, CodeMsgMap[code], struct{}{})
	if r.Msg == "" {
		r.Msg = http.StatusText(code)
	}
	r.Error = detail
	if detail == "" {
		r.Error = r.Msg
	}
	return r
}

// Abort 以 code 作为 HTTP 状态码中断请求
func Abort(c *gin.Context, code int, detail string) {
	c.AbortWithStatusJSON(code, Error(code, detail))
}
