package tts

import (
	"bytes"
	"fmt"

	"github.com/hajimehoshi/go-mp3"
)

// ProbeMP3Duration 估算 MP3 音频的时长（毫秒）。
// 仅用于结果上报，解码失败时调用方应忽略错误继续。
func ProbeMP3Duration(data []byte) (int64, error) {
	decoder, err := mp3.NewDecoder(bytes.NewReader(data))
	if err != nil {
		return 0, fmt.Errorf("MP3 解码失败: %w", err)
	}

	// Length 是解码后 16-bit 立体声 PCM 的总字节数，每帧 4 字节
	frames := decoder.Length() / 4
	if decoder.SampleRate() <= 0 {
		return 0, fmt.Errorf("MP3 采样率非法: %d", decoder.SampleRate())
	}
	return frames * 1000 / int64(decoder.SampleRate()), nil
}
