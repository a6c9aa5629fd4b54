package tts

import "fmt"

// 错误分类。所有错误对单次调用都是终止性的，调用方不做重试，
// 只根据类别决定退出码。

// ConfigError 参数缺失或组合非法。
type ConfigError struct {
	Message string
}

func (e *ConfigError) Error() string { return e.Message }

// Configf 构造一个 ConfigError。
func Configf(format string, args ...interface{}) error {
	return &ConfigError{Message: fmt.Sprintf(format, args...)}
}

// AuthError API Key 缺失或被远端拒绝。
type AuthError struct {
	Message string
}

func (e *AuthError) Error() string { return e.Message }

// Authf 构造一个 AuthError。
func Authf(format string, args ...interface{}) error {
	return &AuthError{Message: fmt.Sprintf(format, args...)}
}

// UpstreamError 远端服务拒绝了请求（无效音色、限流、余额不足等）。
// Status 是 HTTP 状态码，Code 是 base_resp.status_code，二者至多一个有效。
type UpstreamError struct {
	Status  int
	Code    int
	Message string
}

func (e *UpstreamError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("MiniMax 返回 HTTP %d: %s", e.Status, e.Message)
	}
	if e.Code != 0 {
		return fmt.Sprintf("MiniMax 返回错误: status_code=%d, status_msg=%s", e.Code, e.Message)
	}
	return fmt.Sprintf("MiniMax 返回错误: %s", e.Message)
}

// FSError 输出文件无法写入。
type FSError struct {
	Path string
	Err  error
}

func (e *FSError) Error() string {
	return fmt.Sprintf("写入 %s 失败: %v", e.Path, e.Err)
}

func (e *FSError) Unwrap() error { return e.Err }
