package knowledge

import (
	"fmt"
	"strconv"
	"strings"
)

// 保留的元数据键
const (
	MetaUserID    = "user_id"
	MetaProjectID = "project_id"
	MetaType      = "type"
	MetaItemID    = "item_id"
	MetaName      = "name"
	MetaSubtype   = "subtype"
	// MetaScore 检索结果的相关度，仅出现在读取路径
	MetaScore = "score"
)

// FlattenMetadata 将任意嵌套的元数据压平为字符串键值对
// 嵌套 map 压平为 parent_childkey；显式 nil 值表示删除该键，压平时跳过。
func FlattenMetadata(meta map[string]any) map[string]string {
	out := make(map[string]string, len(meta))
	flattenInto(out, "", meta)
	return out
}

func flattenInto(out map[string]string, prefix string, meta map[string]any) {
	for k, v := range meta {
		key := k
		if prefix != "" {
			key = prefix + "_" + k
		}
		switch vv := v.(type) {
		case nil:
			// nil 是“清除该字段”的语义，由合并逻辑处理，这里不落盘
		case map[string]any:
			flattenInto(out, key, vv)
		case string:
			out[key] = vv
		default:
			out[key] = fmt.Sprint(vv)
		}
	}
}

// MergeMetadata 将补丁合并进现有元数据
// 补丁中显式 nil 的键从结果中移除（“清空字段”语义，而非空操作）；
// 嵌套 map 先压平再合并。作用域键不可被补丁覆盖或移除。
func MergeMetadata(current map[string]string, patch map[string]any, scope Scope) map[string]string {
	merged := make(map[string]string, len(current))
	for k, v := range current {
		merged[k] = v
	}

	removals := collectRemovals("", patch)
	for _, k := range removals {
		if isScopeKey(k) {
			continue
		}
		delete(merged, k)
	}

	for k, v := range FlattenMetadata(patch) {
		if isScopeKey(k) {
			continue
		}
		merged[k] = v
	}

	return WithScope(merged, scope)
}

// collectRemovals 收集补丁中显式置 nil 的键（含嵌套路径）
func collectRemovals(prefix string, patch map[string]any) []string {
	var keys []string
	for k, v := range patch {
		key := k
		if prefix != "" {
			key = prefix + "_" + k
		}
		switch vv := v.(type) {
		case nil:
			keys = append(keys, key)
		case map[string]any:
			keys = append(keys, collectRemovals(key, vv)...)
		}
	}
	return keys
}

// WithScope 无条件注入作用域键
// 写路径与读路径都经过这里，保证过滤条件遗漏时也不会跨租户泄漏。
func WithScope(meta map[string]string, scope Scope) map[string]string {
	if meta == nil {
		meta = make(map[string]string, 2)
	}
	meta[MetaUserID] = scope.UserID
	meta[MetaProjectID] = scope.ProjectID
	return meta
}

func formatScore(score float64) string {
	return strconv.FormatFloat(score, 'f', 6, 64)
}

func isScopeKey(k string) bool {
	return k == MetaUserID || k == MetaProjectID
}

// ShortID 取标识前 8 位用于拼集合名
func ShortID(id string) string {
	id = strings.ReplaceAll(strings.TrimSpace(id), "-", "")
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// CollectionName 作用域对应的集合名：user_{id8}_project_{id8}
func CollectionName(scope Scope) string {
	return fmt.Sprintf("user_%s_project_%s", ShortID(scope.UserID), ShortID(scope.ProjectID))
}
