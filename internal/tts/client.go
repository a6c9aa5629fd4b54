package tts

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/iabetor/minivoice/internal/logger"
)

// Client 调用 MiniMax T2A v2 HTTP 接口完成语音合成。
type Client struct {
	endpoint   string
	apiKey     string
	httpClient *http.Client
}

// Synthesis 一次合成的结果。
type Synthesis struct {
	Audio   []byte
	TraceID string
}

// NewClient 创建 MiniMax TTS 客户端。
// apiKey 不能为空，任何网络调用之前就会失败。
func NewClient(endpoint, apiKey string, timeout time.Duration) (*Client, error) {
	if apiKey == "" {
		return nil, Authf("缺少 API Key：请设置 MINIMAX_API_KEY 或使用 --api-key")
	}
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	return &Client{
		endpoint: endpoint,
		apiKey:   apiKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}, nil
}

// Synthesize 将文本合成为音频字节。
// hex 模式下音频内嵌在响应里直接解码，url 模式下做一次二次下载。
func (c *Client) Synthesize(ctx context.Context, req *Request) (*Synthesis, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	logger.Infof("[tts] 正在合成 %d 个字符，音色=%s，模型=%s", len([]rune(req.Text)), req.VoiceID, req.Model)

	body, err := json.Marshal(req.payload())
	if err != nil {
		return nil, fmt.Errorf("[tts] 序列化请求体失败: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("[tts] 创建请求失败: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("[tts] 请求 MiniMax 失败: %w", err)
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("[tts] 读取响应失败: %w", err)
	}

	if httpResp.StatusCode == http.StatusUnauthorized || httpResp.StatusCode == http.StatusForbidden {
		return nil, Authf("API Key 被拒绝 (HTTP %d): %s", httpResp.StatusCode, truncate(respBody))
	}
	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		return nil, &UpstreamError{Status: httpResp.StatusCode, Message: truncate(respBody)}
	}

	var resp synthesisResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, fmt.Errorf("[tts] 解析响应失败: %w", err)
	}

	if resp.BaseResp.StatusCode != 0 {
		return nil, &UpstreamError{Code: resp.BaseResp.StatusCode, Message: resp.BaseResp.StatusMsg}
	}
	if resp.Data.Audio == "" {
		return nil, &UpstreamError{Message: "响应中缺少 data.audio 字段"}
	}

	var audio []byte
	if req.OutputFormat == OutputFormatURL {
		audio, err = c.download(ctx, resp.Data.Audio)
	} else {
		audio, err = decodeAudio(resp.Data.Audio)
	}
	if err != nil {
		return nil, err
	}

	logger.Infof("[tts] 收到 %d 字节音频数据 (trace_id=%s)", len(audio), resp.TraceID)

	return &Synthesis{
		Audio:   audio,
		TraceID: resp.TraceID,
	}, nil
}

// download url 模式下按响应中的 URL 下载音频文件。
func (c *Client) download(ctx context.Context, audioURL string) ([]byte, error) {
	logger.Debugf("[tts] 正在下载音频: %s", audioURL)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, audioURL, nil)
	if err != nil {
		return nil, fmt.Errorf("[tts] 创建下载请求失败: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("[tts] 下载音频失败: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, &UpstreamError{Status: resp.StatusCode, Message: "下载音频失败: " + truncate(body)}
	}

	return io.ReadAll(resp.Body)
}

// decodeAudio 将响应中的音频字段解码为原始字节。
// 接口文档标注为 hex，但部分版本返回 base64，解码失败时回退。
func decodeAudio(value string) ([]byte, error) {
	if data, err := hex.DecodeString(value); err == nil {
		return data, nil
	}
	data, err := base64.StdEncoding.DecodeString(value)
	if err != nil {
		return nil, &UpstreamError{Message: "音频字段既不是合法 hex 也不是合法 base64"}
	}
	return data, nil
}

// truncate 限制远端错误信息的长度，避免日志被整页 HTML 刷屏。
func truncate(body []byte) string {
	const max = 512
	s := string(body)
	if len(s) > max {
		return s[:max] + "..."
	}
	return s
}
