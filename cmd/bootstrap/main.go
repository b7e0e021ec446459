// Package main 数据库初始化工具：建表并按需播种演示项目
package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"storyforge-api/internal/config"
	"storyforge-api/internal/domain/entity"
	"storyforge-api/internal/wire"
)

func main() {
	_ = godotenv.Load()

	fmt.Println("Starting system bootstrap...")

	// 1. 加载配置
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	ctx := context.Background()

	// 2. 初始化数据层（仅 PostgreSQL）
	dataLayer, cleanup, err := wire.InitializePostgresOnly(ctx, cfg)
	if err != nil {
		log.Fatalf("failed to initialize data layer: %v", err)
	}
	defer cleanup()

	// 3. 迁移全部表结构
	fmt.Println("Running database migrations...")
	if err := dataLayer.PgClient.DB().AutoMigrate(
		&entity.Project{},
		&entity.Chapter{},
		&entity.CodexItem{},
		&entity.Relationship{},
		&entity.Event{},
		&entity.Location{},
		&entity.EventConnection{},
		&entity.LocationConnection{},
		&entity.ValidityReport{},
	); err != nil {
		log.Fatalf("failed to migrate schema: %v", err)
	}
	fmt.Println("Migrations completed.")

	// 4. 按需播种演示项目
	if os.Getenv("BOOTSTRAP_SEED_DEMO") != "true" {
		fmt.Println("Bootstrap completed successfully.")
		return
	}

	seedUserID := os.Getenv("BOOTSTRAP_SEED_USER_ID")
	if seedUserID == "" {
		seedUserID = uuid.NewString()
	}

	projects, err := dataLayer.ProjectRepo.ListByUser(ctx, seedUserID)
	if err != nil {
		log.Fatalf("failed to list projects: %v", err)
	}
	if len(projects) > 0 {
		fmt.Printf("Demo project already exists for user %s.\n", seedUserID)
		fmt.Println("Bootstrap completed successfully.")
		return
	}

	fmt.Printf("Creating demo project for user %s...\n", seedUserID)
	project := entity.NewProject(seedUserID, "演示项目")
	project.Description = "用于本地联调的示例小说项目"
	project.Plot = "一位年轻的修行者离开山门，卷入王朝更替的暗流。"
	project.WritingStyle = "第三人称，叙事克制，注重环境描写。"
	if err := dataLayer.ProjectRepo.Create(ctx, project); err != nil {
		log.Fatalf("failed to create demo project: %v", err)
	}
	fmt.Printf("Demo project created with ID: %s\n", project.ID)

	fmt.Println("Bootstrap completed successfully.")
}
