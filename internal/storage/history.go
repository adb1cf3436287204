package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"market-risk-sentry/pkg/types"
)

// FileStore 警报历史文件，整体以JSON数组读写
type FileStore struct {
	path string
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Path 历史文件路径
func (fs *FileStore) Path() string {
	return fs.path
}

// Load 读取历史，文件不存在时返回空
func (fs *FileStore) Load() ([]*types.Alert, error) {
	data, err := os.ReadFile(fs.path)
	if errors.Is(err, os.ErrNotExist) {
		zap.L().Debug("警报历史文件不存在，从空开始", zap.String("path", fs.path))
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("读取警报历史失败: %w", err)
	}

	var alerts []*types.Alert
	if err := json.Unmarshal(data, &alerts); err != nil {
		return nil, fmt.Errorf("解析警报历史失败: %w", err)
	}
	return alerts, nil
}

// Save 覆盖写入历史，先写临时文件再替换
func (fs *FileStore) Save(alerts []*types.Alert) error {
	if err := os.MkdirAll(filepath.Dir(fs.path), 0o755); err != nil {
		return fmt.Errorf("创建历史目录失败: %w", err)
	}

	if alerts == nil {
		alerts = []*types.Alert{}
	}
	data, err := json.MarshalIndent(alerts, "", "  ")
	if err != nil {
		return fmt.Errorf("序列化警报历史失败: %w", err)
	}

	tmp := fs.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("写入警报历史失败: %w", err)
	}
	if err := os.Rename(tmp, fs.path); err != nil {
		return fmt.Errorf("替换警报历史失败: %w", err)
	}

	zap.L().Debug("警报历史已保存", zap.Int("count", len(alerts)))
	return nil
}
