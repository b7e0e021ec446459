package port

import (
	"context"

	"github.com/cloudwego/eino/components/model"
)

// 模型角色：primary 做正文生成，fast 做校验、抽取等轻量任务
const (
	RolePrimary = "primary"
	RoleFast    = "fast"
)

// ChatModelFactory 定义工作流层对 LLM ChatModel 的最小依赖（port）。
// 按角色取模型，具体 provider 由配置决定。
type ChatModelFactory interface {
	Get(ctx context.Context, role string) (model.BaseChatModel, error)
}
