package cache

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/iabetor/minivoice/internal/database"
	"github.com/iabetor/minivoice/internal/logger"
	"github.com/iabetor/minivoice/internal/tts"
)

// Cache 将合成结果缓存到磁盘，重复合成同一段文本时不再调用计费接口。
// 音频文件以 <key>.<format> 存在缓存目录，索引存在同目录的 SQLite 里。
type Cache struct {
	dir     string
	maxSize int64 // 最大缓存大小（字节），0 表示不限制
	db      *database.DB
}

// Open 打开缓存目录，不存在时创建。
// maxSizeMB 为缓存目录最大大小（MB），0 表示不限制。
func Open(dir string, maxSizeMB int64) (*Cache, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("创建缓存目录失败: %w", err)
	}

	db, err := database.Open(filepath.Join(dir, "index.db"))
	if err != nil {
		return nil, err
	}

	const schema = `
CREATE TABLE IF NOT EXISTS entries (
	key          TEXT PRIMARY KEY,
	voice_id     TEXT NOT NULL,
	model        TEXT NOT NULL,
	format       TEXT NOT NULL,
	size         INTEGER NOT NULL,
	created_at   TEXT NOT NULL,
	last_used_at TEXT NOT NULL
)`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("创建缓存索引表失败: %w", err)
	}

	return &Cache{
		dir:     dir,
		maxSize: maxSizeMB * 1024 * 1024,
		db:      db,
	}, nil
}

// Close 关闭缓存索引。
func (c *Cache) Close() error {
	return c.db.Close()
}

// Key 根据影响合成结果的全部参数计算缓存键。
// 任何一个参数变化都会得到不同的键。
func Key(req *tts.Request) string {
	h := sha256.New()
	fmt.Fprintf(h, "%s\x00%s\x00%s\x00%s\x00%g\x00%g\x00%d\x00%s\x00%d\x00%d\x00%d\x00%s",
		req.Text, req.VoiceID, req.Model, req.Format,
		req.Speed, req.Volume, req.Pitch, req.Emotion,
		req.SampleRate, req.Bitrate, req.Channel, req.LanguageBoost)
	return hex.EncodeToString(h.Sum(nil))
}

// Lookup 查找缓存，命中时返回音频字节并刷新 last_used_at。
func (c *Cache) Lookup(key string) ([]byte, bool) {
	var format string
	err := c.db.QueryRow("SELECT format FROM entries WHERE key = ?", key).Scan(&format)
	if err == sql.ErrNoRows {
		return nil, false
	}
	if err != nil {
		logger.Warnf("[cache] 查询缓存索引失败: %v", err)
		return nil, false
	}

	data, err := os.ReadFile(c.audioPath(key, format))
	if err != nil {
		// 文件被手动删除，索引行也一并清掉
		if _, derr := c.db.Exec("DELETE FROM entries WHERE key = ?", key); derr != nil {
			logger.Warnf("[cache] 清理失效索引失败: %v", derr)
		}
		return nil, false
	}

	now := time.Now().UTC().Format(time.RFC3339Nano)
	if _, err := c.db.Exec("UPDATE entries SET last_used_at = ? WHERE key = ?", now, key); err != nil {
		logger.Warnf("[cache] 更新 last_used_at 失败: %v", err)
	}

	logger.Infof("[cache] 命中: %s (%d bytes)", key[:12], len(data))
	return data, true
}

// Store 将合成结果写入缓存。
// 先写入临时文件再重命名，避免进程中断留下半截文件。
func (c *Cache) Store(key string, req *tts.Request, audio []byte) error {
	path := c.audioPath(key, req.Format)
	tmp := path + ".tmp-" + uuid.NewString()

	if err := os.WriteFile(tmp, audio, 0644); err != nil {
		return fmt.Errorf("写入缓存临时文件失败: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("重命名缓存文件失败: %w", err)
	}

	// 纳秒精度保证淘汰顺序稳定
	now := time.Now().UTC().Format(time.RFC3339Nano)
	_, err := c.db.Exec(`
INSERT INTO entries (key, voice_id, model, format, size, created_at, last_used_at)
VALUES (?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(key) DO UPDATE SET size = excluded.size, last_used_at = excluded.last_used_at`,
		key, req.VoiceID, req.Model, req.Format, len(audio), now, now)
	if err != nil {
		return fmt.Errorf("写入缓存索引失败: %w", err)
	}

	c.evict()

	logger.Infof("[cache] 已缓存: %s (%s, %d bytes)", key[:12], req.Format, len(audio))
	return nil
}

// evict 超出大小上限时按 last_used_at 从旧到新淘汰。
func (c *Cache) evict() {
	if c.maxSize <= 0 {
		return
	}

	var total int64
	if err := c.db.QueryRow("SELECT COALESCE(SUM(size), 0) FROM entries").Scan(&total); err != nil {
		logger.Warnf("[cache] 统计缓存大小失败: %v", err)
		return
	}

	for total > c.maxSize {
		var key, format string
		var size int64
		err := c.db.QueryRow(
			"SELECT key, format, size FROM entries ORDER BY last_used_at ASC LIMIT 1").
			Scan(&key, &format, &size)
		if err != nil {
			return
		}

		if err := os.Remove(c.audioPath(key, format)); err != nil && !os.IsNotExist(err) {
			logger.Warnf("[cache] 删除缓存文件失败: %v", err)
		}
		if _, err := c.db.Exec("DELETE FROM entries WHERE key = ?", key); err != nil {
			logger.Warnf("[cache] 删除缓存索引失败: %v", err)
			return
		}

		total -= size
		logger.Infof("[cache] 已淘汰: %s (%d bytes)", key[:12], size)
	}
}

func (c *Cache) audioPath(key, format string) string {
	return filepath.Join(c.dir, key+"."+format)
}
