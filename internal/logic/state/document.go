// Package state 持久化部署状态：token-info.json、transaction-history.json 和 .env。
// 文件是跨进程的唯一状态来源，写入时保留其他运行写下的未知字段。
package state

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"token-deployer-sol/internal/xerr"
)

// Document 原始 JSON 对象，保留所有字段
type Document map[string]any

// Merge 递归合并：partial 中没有的键在任何层级都保持不变；两边都是对象时递归，否则 partial 的值替换。
// 不修改入参。
func Merge(base, partial Document) Document {
	out := make(Document, len(base)+len(partial))
	for k, v := range base {
		out[k] = v
	}
	for k, pv := range partial {
		bv, exists := out[k]
		if exists {
			bm, bok := asObject(bv)
			pm, pok := asObject(pv)
			if bok && pok {
				out[k] = map[string]any(Merge(bm, pm))
				continue
			}
		}
		out[k] = pv
	}
	return out
}

func asObject(v any) (Document, bool) {
	switch m := v.(type) {
	case map[string]any:
		return Document(m), true
	case Document:
		return m, true
	default:
		return nil, false
	}
}

// ToDocument 把结构体按 json tag 转成 Document；omitempty 的空字段不会出现，合并时也就不会覆盖
func ToDocument(v any) (Document, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return decodeDocument(raw)
}

func decodeDocument(raw []byte) (Document, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var doc Document
	if err := dec.Decode(&doc); err != nil {
		return nil, err
	}
	if doc == nil {
		doc = Document{}
	}
	return doc, nil
}

// Decode 把 Document 解析到结构体
func (d Document) Decode(v any) error {
	raw, err := json.Marshal(d)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, v)
}

// LoadDocument 文件不存在时返回 ErrStateMissing
func LoadDocument(path string) (Document, error) {
	raw, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", xerr.ErrStateMissing, path)
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	doc, err := decodeDocument(raw)
	if err != nil {
		return nil, xerr.Invalid("%s is not a JSON object: %v", path, err)
	}
	return doc, nil
}

// writeJSONAtomic 先写同目录临时文件再 rename，避免中途失败留下半个文件
func writeJSONAtomic(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}
