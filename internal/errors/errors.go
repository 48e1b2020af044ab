package errors

import (
	"fmt"
	"runtime"
	"strings"
)

// ErrorCode 错误码类型
type ErrorCode int

// 错误码定义（按模块分组）
const (
	// 通用错误 (1000-1999)
	ErrUnknown          ErrorCode = 1000
	ErrInvalidParam     ErrorCode = 1001
	ErrNotFound         ErrorCode = 1002
	ErrAlreadyExists    ErrorCode = 1003
	ErrPermissionDenied ErrorCode = 1004
	ErrTimeout          ErrorCode = 1005

	// 房间错误 (2000-2999)
	ErrRoomNotFound      ErrorCode = 2000
	ErrRoomCodeNotFound  ErrorCode = 2001
	ErrRoomNotWaiting    ErrorCode = 2002
	ErrRoomInProgress    ErrorCode = 2003
	ErrRoomFinished      ErrorCode = 2004
	ErrRoomNotInProgress ErrorCode = 2005
	ErrRoomFull          ErrorCode = 2006
	ErrNameTaken         ErrorCode = 2007
	ErrPlayerNotFound    ErrorCode = 2008
	ErrNotRoomOwner      ErrorCode = 2009
	ErrNotEnoughPlayers  ErrorCode = 2010

	// 订单错误 (3000-3999)
	ErrWrongPhase        ErrorCode = 3000
	ErrDuplicateOrder    ErrorCode = 3001
	ErrOrderNotFound     ErrorCode = 3002
	ErrOrderNotPending   ErrorCode = 3003
	ErrInvalidOrder      ErrorCode = 3004
	ErrStockNotFound     ErrorCode = 3005
	ErrNotAllPlayersActed ErrorCode = 3006

	// 事件错误 (4000-4999)
	ErrEventNotFound   ErrorCode = 4000
	ErrEventExists     ErrorCode = 4001
	ErrGeneratorFailed ErrorCode = 4002

	// 数据库错误 (5000-5999)
	ErrDatabaseConnect ErrorCode = 5000
	ErrDatabaseQuery   ErrorCode = 5001
	ErrDatabaseInsert  ErrorCode = 5002
	ErrDatabaseUpdate  ErrorCode = 5003
	ErrTransaction     ErrorCode = 5004
	ErrPhaseConflict   ErrorCode = 5005

	// 配置错误 (6000-6999)
	ErrConfigLoad     ErrorCode = 6000
	ErrConfigValidate ErrorCode = 6001

	// 认证错误 (7000-7999)
	ErrAuthentication ErrorCode = 7000
	ErrTokenExpired   ErrorCode = 7001
	ErrTokenInvalid   ErrorCode = 7002
)

// 错误码消息映射
var errorMessages = map[ErrorCode]string{
	// 通用错误
	ErrUnknown:          "未知错误",
	ErrInvalidParam:     "无效的参数",
	ErrNotFound:         "资源未找到",
	ErrAlreadyExists:    "资源已存在",
	ErrPermissionDenied: "权限不足",
	ErrTimeout:          "操作超时",

	// 房间错误
	ErrRoomNotFound:      "房间不存在",
	ErrRoomCodeNotFound:  "房间码不存在",
	ErrRoomNotWaiting:    "房间不在等待状态",
	ErrRoomInProgress:    "游戏已经开始",
	ErrRoomFinished:      "游戏已经结束",
	ErrRoomNotInProgress: "游戏不在进行中",
	ErrRoomFull:          "房间已满",
	ErrNameTaken:         "该昵称在房间内已被使用",
	ErrPlayerNotFound:    "玩家不存在",
	ErrNotRoomOwner:      "只有房主可以执行该操作",
	ErrNotEnoughPlayers:  "房间内玩家数量不足",

	// 订单错误
	ErrWrongPhase:         "当前阶段不允许该操作",
	ErrDuplicateOrder:     "本回合已提交过订单",
	ErrOrderNotFound:      "订单不存在",
	ErrOrderNotPending:    "订单已不在待处理状态",
	ErrInvalidOrder:       "无效的订单",
	ErrStockNotFound:      "股票不存在",
	ErrNotAllPlayersActed: "还有玩家未提交订单",

	// 事件错误
	ErrEventNotFound:   "本回合事件不存在",
	ErrEventExists:     "本回合事件已存在",
	ErrGeneratorFailed: "事件生成失败",

	// 数据库错误
	ErrDatabaseConnect: "数据库连接失败",
	ErrDatabaseQuery:   "数据库查询失败",
	ErrDatabaseInsert:  "数据库插入失败",
	ErrDatabaseUpdate:  "数据库更新失败",
	ErrTransaction:     "事务处理失败",
	ErrPhaseConflict:   "房间阶段已被其他操作推进",

	// 配置错误
	ErrConfigLoad:     "配置加载失败",
	ErrConfigValidate: "配置验证失败",

	// 认证错误
	ErrAuthentication: "认证失败",
	ErrTokenExpired:   "令牌已过期",
	ErrTokenInvalid:   "无效的令牌",
}

// AppError 应用错误结构
type AppError struct {
	Code    ErrorCode    `json:"code"`    // 错误码
	Message string       `json:"message"` // 错误消息
	Details string       `json:"details"` // 详细信息
	Cause   error        `json:"-"`       // 原始错误
	Stack   []StackFrame `json:"stack,omitempty"`
}

// StackFrame 调用栈帧
type StackFrame struct {
	Function string `json:"function"`
	File     string `json:"file"`
	Line     int    `json:"line"`
}

// Error 实现error接口
func (e *AppError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("[%d] %s: %s", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("[%d] %s", e.Code, e.Message)
}

// Unwrap 返回原始错误
func (e *AppError) Unwrap() error {
	return e.Cause
}

// WithDetails 添加详细信息
func (e *AppError) WithDetails(details string) *AppError {
	e.Details = details
	return e
}

// WithCause 添加原因错误
func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	if cause != nil && e.Details == "" {
		e.Details = cause.Error()
	}
	return e
}

// New 创建新的应用错误
func New(code ErrorCode, details ...string) *AppError {
	message, ok := errorMessages[code]
	if !ok {
		message = errorMessages[ErrUnknown]
	}

	err := &AppError{
		Code:    code,
		Message: message,
	}

	if len(details) > 0 {
		err.Details = strings.Join(details, "; ")
	}

	err.captureStack(2)

	return err
}

// Newf 创建格式化的应用错误
func Newf(code ErrorCode, format string, args ...interface{}) *AppError {
	return New(code, fmt.Sprintf(format, args...))
}

// Wrap 包装错误
func Wrap(err error, code ErrorCode, details ...string) *AppError {
	if err == nil {
		return nil
	}

	// 已经是AppError时保留原始错误码
	if appErr, ok := err.(*AppError); ok {
		if len(details) > 0 {
			appErr.Details = strings.Join(details, "; ") + "; " + appErr.Details
		}
		return appErr
	}

	appErr := New(code, details...)
	appErr.Cause = err
	if appErr.Details == "" {
		appErr.Details = err.Error()
	}

	return appErr
}

// Wrapf 包装格式化错误
func Wrapf(err error, code ErrorCode, format string, args ...interface{}) *AppError {
	return Wrap(err, code, fmt.Sprintf(format, args...))
}

// Is 判断错误是否为指定错误码
func Is(err error, code ErrorCode) bool {
	if err == nil {
		return false
	}

	appErr, ok := err.(*AppError)
	return ok && appErr.Code == code
}

// GetCode 获取错误码
func GetCode(err error) ErrorCode {
	if err == nil {
		return 0
	}

	if appErr, ok := err.(*AppError); ok {
		return appErr.Code
	}

	return ErrUnknown
}

// captureStack 捕获调用栈
func (e *AppError) captureStack(skip int) {
	pcs := make([]uintptr, 32)
	n := runtime.Callers(skip+1, pcs)
	if n == 0 {
		return
	}

	frames := runtime.CallersFrames(pcs[:n])
	for {
		frame, more := frames.Next()

		// 跳过runtime和本包的调用
		if strings.Contains(frame.Function, "runtime.") ||
			strings.Contains(frame.Function, "github.com/wfunc/party-market/internal/errors") {
			if !more {
				break
			}
			continue
		}

		e.Stack = append(e.Stack, StackFrame{
			Function: frame.Function,
			File:     frame.File,
			Line:     frame.Line,
		})

		if !more || len(e.Stack) >= 10 {
			break
		}
	}
}
