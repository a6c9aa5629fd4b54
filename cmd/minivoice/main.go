// minivoice 调用 MiniMax T2A v2 接口将文本合成为语音文件。
//
// 用法:
//
//	export MINIMAX_API_KEY=your-api-key
//	minivoice --voice-id female-shaonv --text "你好，世界" --output hello.mp3
//
// 成功时向 stdout 打印一行结果 JSON 并以 0 退出；
// 失败时向 stderr 打印错误 JSON，按错误类别以非零码退出。
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/iabetor/minivoice/internal/cache"
	"github.com/iabetor/minivoice/internal/config"
	"github.com/iabetor/minivoice/internal/logger"
	"github.com/iabetor/minivoice/internal/tts"
)

// result 打印到 stdout 的单行 JSON 结果。
type result struct {
	OK         bool   `json:"ok"`
	OutputPath string `json:"output_path"`
	VoiceID    string `json:"voice_id"`
	Model      string `json:"model"`
	Format     string `json:"format"`
	Bytes      int    `json:"bytes"`
	TraceID    string `json:"trace_id,omitempty"`
	DurationMS int64  `json:"duration_ms,omitempty"`
	Cached     bool   `json:"cached,omitempty"`
}

func main() {
	configPath := flag.String("config", "", "配置文件路径（可选）")
	text := flag.String("text", "", "要合成的文本")
	textFile := flag.String("text-file", "", "从文件读取要合成的文本")
	voiceID := flag.String("voice-id", "", "MiniMax 音色 ID（必填）")
	model := flag.String("model", config.DefaultModel, "MiniMax TTS 模型")
	format := flag.String("format", config.DefaultFormat, "音频格式: mp3, wav, flac, pcm")
	output := flag.String("output", "", "输出音频文件路径（必填）")
	speed := flag.Float64("speed", 1.0, "语速 (0.5-2.0)")
	volume := flag.Float64("volume", 1.0, "音量")
	pitch := flag.Int("pitch", 0, "音调偏移")
	emotion := flag.String("emotion", "", "情绪: happy, sad, angry, neutral 等（可选）")
	sampleRate := flag.Int("sample-rate", config.DefaultSampleRate, "采样率 (Hz)")
	bitrate := flag.Int("bitrate", config.DefaultBitrate, "码率 (bps)")
	channel := flag.Int("channel", config.DefaultChannel, "声道数")
	languageBoost := flag.String("language-boost", "auto", "语种增强")
	outputFormat := flag.String("output-format", tts.OutputFormatHex, "响应编码: hex 或 url")
	endpoint := flag.String("endpoint", "", "接口地址（默认取 MINIMAX_TTS_ENDPOINT 或官方地址）")
	apiKey := flag.String("api-key", "", "API Key（默认取 MINIMAX_API_KEY）")
	timeout := flag.Int("timeout", config.DefaultTimeout, "请求超时时间（秒）")
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fail(tts.Configf("%v", err))
	}

	// 命令行显式指定的 flag 覆盖配置文件
	set := map[string]bool{}
	flag.Visit(func(f *flag.Flag) { set[f.Name] = true })

	if set["model"] {
		cfg.TTS.Model = *model
	}
	if set["format"] {
		cfg.TTS.Format = *format
	}
	if set["voice-id"] {
		cfg.TTS.VoiceID = *voiceID
	}
	if set["speed"] {
		cfg.TTS.Speed = *speed
	}
	if set["volume"] {
		cfg.TTS.Volume = *volume
	}
	if set["pitch"] {
		cfg.TTS.Pitch = *pitch
	}
	if set["sample-rate"] {
		cfg.TTS.SampleRate = *sampleRate
	}
	if set["bitrate"] {
		cfg.TTS.Bitrate = *bitrate
	}
	if set["channel"] {
		cfg.TTS.Channel = *channel
	}
	if set["language-boost"] {
		cfg.TTS.LanguageBoost = *languageBoost
	}
	if set["output-format"] {
		cfg.TTS.OutputFormat = *outputFormat
	}
	if set["endpoint"] {
		cfg.TTS.Endpoint = *endpoint
	}
	if set["api-key"] {
		cfg.TTS.APIKey = *apiKey
	}
	if set["timeout"] {
		cfg.TTS.Timeout = *timeout
	}

	if err := logger.Init(logger.Config{
		Level:      cfg.Log.Level,
		File:       cfg.Log.File,
		MaxSize:    cfg.Log.MaxSize,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAge:     cfg.Log.MaxAge,
	}); err != nil {
		fail(tts.Configf("%v", err))
	}
	defer logger.Sync()

	if *output == "" {
		fail(tts.Configf("缺少输出路径：请使用 --output 指定"))
	}

	content, err := tts.ResolveText(*text, *textFile)
	if err != nil {
		fail(err)
	}

	key := cfg.TTS.APIKey
	if key == "" {
		key = os.Getenv("MINIMAX_API_KEY")
	}

	req := &tts.Request{
		Text:          content,
		VoiceID:       cfg.TTS.VoiceID,
		Model:         cfg.TTS.Model,
		Format:        cfg.TTS.Format,
		Speed:         cfg.TTS.Speed,
		Volume:        cfg.TTS.Volume,
		Pitch:         cfg.TTS.Pitch,
		Emotion:       *emotion,
		SampleRate:    cfg.TTS.SampleRate,
		Bitrate:       cfg.TTS.Bitrate,
		Channel:       cfg.TTS.Channel,
		LanguageBoost: cfg.TTS.LanguageBoost,
		OutputFormat:  cfg.TTS.OutputFormat,
	}
	if err := req.Validate(); err != nil {
		fail(err)
	}

	res := result{
		OutputPath: *output,
		VoiceID:    req.VoiceID,
		Model:      req.Model,
		Format:     req.Format,
	}

	var audio []byte
	var store *cache.Cache

	if cfg.Cache.Enabled {
		store, err = cache.Open(cfg.Cache.Dir, cfg.Cache.MaxSizeMB)
		if err != nil {
			// 缓存打不开不影响合成本身
			logger.Warnf("打开缓存失败（本次跳过缓存）: %v", err)
			store = nil
		} else {
			defer store.Close()
			if data, ok := store.Lookup(cache.Key(req)); ok {
				audio = data
				res.Cached = true
			}
		}
	}

	if audio == nil {
		client, err := tts.NewClient(cfg.TTS.Endpoint, key, time.Duration(cfg.TTS.Timeout)*time.Second)
		if err != nil {
			fail(err)
		}

		syn, err := client.Synthesize(context.Background(), req)
		if err != nil {
			fail(err)
		}
		audio = syn.Audio
		res.TraceID = syn.TraceID

		if store != nil {
			if err := store.Store(cache.Key(req), req, audio); err != nil {
				logger.Warnf("写入缓存失败: %v", err)
			}
		}
	}

	if err := writeOutput(*output, audio); err != nil {
		fail(err)
	}
	res.OK = true
	res.Bytes = len(audio)

	if req.Format == "mp3" {
		if ms, err := tts.ProbeMP3Duration(audio); err == nil {
			res.DurationMS = ms
		} else {
			logger.Debugf("估算音频时长失败: %v", err)
		}
	}

	out, _ := json.Marshal(res)
	fmt.Println(string(out))
}

// loadConfig 加载配置文件，未指定时使用纯默认值。
func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.Default(), nil
	}
	return config.Load(path)
}

// writeOutput 将音频字节写入输出路径，父目录不存在时创建。
func writeOutput(path string, data []byte) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return &tts.FSError{Path: path, Err: err}
		}
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return &tts.FSError{Path: path, Err: err}
	}
	return nil
}

// fail 打印错误 JSON 到 stderr 并按错误类别退出。
func fail(err error) {
	logger.Errorf("%v", err)
	out, _ := json.Marshal(map[string]interface{}{"ok": false, "error": err.Error()})
	fmt.Fprintln(os.Stderr, string(out))
	logger.Sync()
	os.Exit(exitCode(err))
}

// exitCode 错误类别到退出码的映射，便于脚本区分失败原因。
func exitCode(err error) int {
	var configErr *tts.ConfigError
	var authErr *tts.AuthError
	var upstreamErr *tts.UpstreamError
	var fsErr *tts.FSError

	switch {
	case errors.As(err, &configErr):
		return 2
	case errors.As(err, &authErr):
		return 3
	case errors.As(err, &upstreamErr):
		return 4
	case errors.As(err, &fsErr):
		return 5
	}
	return 1
}
