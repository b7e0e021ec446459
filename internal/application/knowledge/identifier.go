package knowledge

import (
	"context"
	"fmt"
	"strings"
)

// Identifier 知识条目的带标签标识
// 统一“裸 embedding id”与“(所属条目, 类型)”两种寻址方式，
// 在知识库内部解析为具体存储 ID 后再执行删除/更新。
type Identifier struct {
	// id 非空表示按 embedding id 直接寻址
	id string
	// ownerID + kind 表示按所属条目寻址
	ownerID string
	kind    string
}

// ByID 按 embedding id 寻址
func ByID(id string) Identifier {
	return Identifier{id: strings.TrimSpace(id)}
}

// ByOwner 按所属条目与类型寻址
func ByOwner(ownerID, kind string) Identifier {
	return Identifier{ownerID: strings.TrimSpace(ownerID), kind: strings.TrimSpace(kind)}
}

// IsZero 是否为空标识
func (id Identifier) IsZero() bool {
	return id.id == "" && id.ownerID == ""
}

func (id Identifier) String() string {
	if id.id != "" {
		return id.id
	}
	return fmt.Sprintf("%s/%s", id.kind, id.ownerID)
}

// resolve 将标识解析为具体存储 ID
// ByID 直接返回；ByOwner 在作用域内按 item_id + type 元数据查找。
// 未命中返回空串（由调用处决定是报错还是幂等跳过）。
func (s *Store) resolve(ctx context.Context, scope Scope, ident Identifier) (string, error) {
	if ident.id != "" {
		return ident.id, nil
	}
	if ident.ownerID == "" {
		return "", fmt.Errorf("empty knowledge identifier")
	}

	items, err := s.index.List(ctx, scope)
	if err != nil {
		return "", err
	}
	for _, item := range items {
		if item == nil {
			continue
		}
		if item.Metadata[MetaItemID] != ident.ownerID {
			continue
		}
		if ident.kind != "" && item.Metadata[MetaType] != ident.kind {
			continue
		}
		return item.ID, nil
	}
	return "", nil
}
