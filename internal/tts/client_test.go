package tts

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func testRequest() *Request {
	return &Request{
		Text:          "你好，世界",
		VoiceID:       "female-shaonv",
		Model:         "speech-2.8-hd",
		Format:        "mp3",
		Speed:         1.0,
		Volume:        1.0,
		SampleRate:    32000,
		Bitrate:       128000,
		Channel:       1,
		LanguageBoost: "auto",
		OutputFormat:  OutputFormatHex,
	}
}

func newTestClient(t *testing.T, endpoint string) *Client {
	t.Helper()
	client, err := NewClient(endpoint, "sk-test", 5*time.Second)
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}
	return client
}

func TestNewClient_MissingKey(t *testing.T) {
	_, err := NewClient("https://example.com", "", 0)
	if err == nil {
		t.Fatal("expected error for empty api key")
	}
	var authErr *AuthError
	if !errors.As(err, &authErr) {
		t.Errorf("expected AuthError, got %T", err)
	}
}

func TestSynthesize_HexRoundTrip(t *testing.T) {
	audio := []byte{0x49, 0x44, 0x33, 0x03, 0x00, 0xff, 0xfb, 0x90}

	var gotPayload synthesisPayload
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if auth := r.Header.Get("Authorization"); auth != "Bearer sk-test" {
			t.Errorf("Authorization header: got %q", auth)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("Content-Type: got %q", ct)
		}
		if err := json.NewDecoder(r.Body).Decode(&gotPayload); err != nil {
			t.Errorf("解析请求体失败: %v", err)
		}

		json.NewEncoder(w).Encode(map[string]interface{}{
			"data":      map[string]string{"audio": hex.EncodeToString(audio)},
			"trace_id":  "trace-123",
			"base_resp": map[string]interface{}{"status_code": 0, "status_msg": "success"},
		})
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	syn, err := client.Synthesize(context.Background(), testRequest())
	if err != nil {
		t.Fatalf("Synthesize failed: %v", err)
	}

	if !bytes.Equal(syn.Audio, audio) {
		t.Errorf("audio mismatch: got %x, want %x", syn.Audio, audio)
	}
	if syn.TraceID != "trace-123" {
		t.Errorf("TraceID: got %q", syn.TraceID)
	}

	// 请求体字段按接口契约命名
	if gotPayload.Model != "speech-2.8-hd" {
		t.Errorf("payload model: got %q", gotPayload.Model)
	}
	if gotPayload.VoiceSetting.VoiceID != "female-shaonv" {
		t.Errorf("payload voice_id: got %q", gotPayload.VoiceSetting.VoiceID)
	}
	if gotPayload.Stream {
		t.Error("payload stream should be false")
	}
	if gotPayload.AudioSetting.SampleRate != 32000 {
		t.Errorf("payload sample_rate: got %d", gotPayload.AudioSetting.SampleRate)
	}
	if gotPayload.OutputFormat != "hex" {
		t.Errorf("payload output_format: got %q", gotPayload.OutputFormat)
	}
}

func TestSynthesize_Base64Fallback(t *testing.T) {
	audio := []byte("MiniVoice audio bytes")

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"data":      map[string]string{"audio": base64.StdEncoding.EncodeToString(audio)},
			"trace_id":  "trace-b64",
			"base_resp": map[string]interface{}{"status_code": 0},
		})
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	syn, err := client.Synthesize(context.Background(), testRequest())
	if err != nil {
		t.Fatalf("Synthesize failed: %v", err)
	}
	if !bytes.Equal(syn.Audio, audio) {
		t.Errorf("audio mismatch: got %q", syn.Audio)
	}
}

func TestSynthesize_URLMode(t *testing.T) {
	audio := []byte{0x52, 0x49, 0x46, 0x46, 0x00, 0x01}

	fileServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(audio)
	}))
	defer fileServer.Close()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"data":      map[string]string{"audio": fileServer.URL + "/out.mp3"},
			"trace_id":  "trace-url",
			"base_resp": map[string]interface{}{"status_code": 0},
		})
	}))
	defer server.Close()

	req := testRequest()
	req.OutputFormat = OutputFormatURL

	client := newTestClient(t, server.URL)
	syn, err := client.Synthesize(context.Background(), req)
	if err != nil {
		t.Fatalf("Synthesize failed: %v", err)
	}
	if !bytes.Equal(syn.Audio, audio) {
		t.Errorf("audio mismatch: got %x, want %x", syn.Audio, audio)
	}
}

func TestSynthesize_HTTP401(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"invalid api key"}`, http.StatusUnauthorized)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	_, err := client.Synthesize(context.Background(), testRequest())
	if err == nil {
		t.Fatal("expected error for 401")
	}
	var authErr *AuthError
	if !errors.As(err, &authErr) {
		t.Errorf("expected AuthError, got %T: %v", err, err)
	}
}

func TestSynthesize_HTTP500(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "internal error", http.StatusInternalServerError)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	_, err := client.Synthesize(context.Background(), testRequest())
	if err == nil {
		t.Fatal("expected error for 500")
	}
	var upstreamErr *UpstreamError
	if !errors.As(err, &upstreamErr) {
		t.Fatalf("expected UpstreamError, got %T: %v", err, err)
	}
	if upstreamErr.Status != http.StatusInternalServerError {
		t.Errorf("Status: got %d", upstreamErr.Status)
	}
}

func TestSynthesize_BaseRespError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"base_resp": map[string]interface{}{"status_code": 2013, "status_msg": "invalid voice_id"},
		})
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	_, err := client.Synthesize(context.Background(), testRequest())
	if err == nil {
		t.Fatal("expected error for base_resp failure")
	}
	var upstreamErr *UpstreamError
	if !errors.As(err, &upstreamErr) {
		t.Fatalf("expected UpstreamError, got %T: %v", err, err)
	}
	if upstreamErr.Code != 2013 {
		t.Errorf("Code: got %d, want 2013", upstreamErr.Code)
	}
	if upstreamErr.Message != "invalid voice_id" {
		t.Errorf("Message: got %q", upstreamErr.Message)
	}
}

func TestSynthesize_MissingAudio(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"base_resp": map[string]interface{}{"status_code": 0},
		})
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	_, err := client.Synthesize(context.Background(), testRequest())
	if err == nil {
		t.Fatal("expected error for missing data.audio")
	}
	var upstreamErr *UpstreamError
	if !errors.As(err, &upstreamErr) {
		t.Errorf("expected UpstreamError, got %T: %v", err, err)
	}
}

func TestSynthesize_InvalidRequestSkipsNetwork(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
	}))
	defer server.Close()

	req := testRequest()
	req.VoiceID = ""

	client := newTestClient(t, server.URL)
	_, err := client.Synthesize(context.Background(), req)
	if err == nil {
		t.Fatal("expected validation error")
	}
	var configErr *ConfigError
	if !errors.As(err, &configErr) {
		t.Errorf("expected ConfigError, got %T", err)
	}
	if calls != 0 {
		t.Errorf("expected no network call, got %d", calls)
	}
}

func TestDecodeAudio(t *testing.T) {
	want := []byte{0xde, 0xad, 0xbe, 0xef}

	if got, err := decodeAudio(hex.EncodeToString(want)); err != nil || !bytes.Equal(got, want) {
		t.Errorf("hex decode: got %x, err %v", got, err)
	}
	if got, err := decodeAudio(base64.StdEncoding.EncodeToString(want)); err != nil || !bytes.Equal(got, want) {
		t.Errorf("base64 decode: got %x, err %v", got, err)
	}
	if _, err := decodeAudio("!!not-audio!!"); err == nil {
		t.Error("expected error for undecodable value")
	}
}

func TestProbeMP3Duration_InvalidData(t *testing.T) {
	if _, err := ProbeMP3Duration([]byte("definitely not mp3")); err == nil {
		t.Error("expected error for invalid mp3 data")
	}
}
