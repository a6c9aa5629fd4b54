package tts

import (
	"os"
	"strings"
)

// 响应编码模式：hex 表示音频内嵌在响应里，url 表示需要二次下载。
const (
	OutputFormatHex = "hex"
	OutputFormatURL = "url"
)

// audioFormats 是接口支持的音频封装格式。
var audioFormats = map[string]bool{
	"mp3":  true,
	"wav":  true,
	"flac": true,
	"pcm":  true,
}

// Request 一次语音合成的全部参数。
type Request struct {
	Text    string
	VoiceID string
	Model   string
	Format  string

	Speed   float64
	Volume  float64
	Pitch   int
	Emotion string

	SampleRate int
	Bitrate    int
	Channel    int

	LanguageBoost string
	OutputFormat  string
}

// Validate 检查请求参数是否完整合法。
func (r *Request) Validate() error {
	if r.Text == "" {
		return Configf("合成文本为空")
	}
	if r.VoiceID == "" {
		return Configf("缺少音色 ID：请使用 --voice-id 指定")
	}
	if !audioFormats[r.Format] {
		return Configf("不支持的音频格式 %q（可选: mp3, wav, flac, pcm）", r.Format)
	}
	if r.OutputFormat != OutputFormatHex && r.OutputFormat != OutputFormatURL {
		return Configf("不支持的响应编码 %q（可选: hex, url）", r.OutputFormat)
	}
	return nil
}

// ResolveText 从 --text 或 --text-file 中解析合成文本。
// 两者必须恰好提供一个，文件内容按 UTF-8 读取并去除首尾空白。
func ResolveText(text, textFile string) (string, error) {
	if (text == "") == (textFile == "") {
		return "", Configf("--text 和 --text-file 必须恰好提供一个")
	}

	if text != "" {
		text = strings.TrimSpace(text)
	} else {
		data, err := os.ReadFile(textFile)
		if err != nil {
			return "", Configf("读取文本文件 %s 失败: %v", textFile, err)
		}
		text = strings.TrimSpace(string(data))
	}

	if text == "" {
		return "", Configf("合成文本为空")
	}
	return text, nil
}

// 以下是 MiniMax T2A v2 的请求体结构。

type voiceSetting struct {
	VoiceID string  `json:"voice_id"`
	Speed   float64 `json:"speed"`
	Volume  float64 `json:"vol"`
	Pitch   int     `json:"pitch"`
	Emotion string  `json:"emotion,omitempty"`
}

type audioSetting struct {
	SampleRate int    `json:"sample_rate"`
	Bitrate    int    `json:"bitrate"`
	Format     string `json:"format"`
	Channel    int    `json:"channel"`
}

type synthesisPayload struct {
	Model         string       `json:"model"`
	Text          string       `json:"text"`
	Stream        bool         `json:"stream"`
	LanguageBoost string       `json:"language_boost"`
	VoiceSetting  voiceSetting `json:"voice_setting"`
	AudioSetting  audioSetting `json:"audio_setting"`
	OutputFormat  string       `json:"output_format"`
}

func (r *Request) payload() synthesisPayload {
	return synthesisPayload{
		Model:         r.Model,
		Text:          r.Text,
		Stream:        false,
		LanguageBoost: r.LanguageBoost,
		VoiceSetting: voiceSetting{
			VoiceID: r.VoiceID,
			Speed:   r.Speed,
			Volume:  r.Volume,
			Pitch:   r.Pitch,
			Emotion: r.Emotion,
		},
		AudioSetting: audioSetting{
			SampleRate: r.SampleRate,
			Bitrate:    r.Bitrate,
			Format:     r.Format,
			Channel:    r.Channel,
		},
		OutputFormat: r.OutputFormat,
	}
}

// 响应体结构。

type baseResp struct {
	StatusCode int    `json:"status_code"`
	StatusMsg  string `json:"status_msg"`
}

type synthesisResponse struct {
	Data struct {
		Audio string `json:"audio"`
	} `json:"data"`
	TraceID  string   `json:"trace_id"`
	BaseResp baseResp `json:"base_resp"`
}
