package model

// EntityCheckInput 新实体识别输入
type EntityCheckInput struct {
	Chapter    string
	KnownNames []string
}

// EntityExtractInput 新实体建档输入
type EntityExtractInput struct {
	Chapter string
	Names   []string
}

// ExtractedEntity 模型抽取出的新实体档案
type ExtractedEntity struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	Description string `json:"description"`
	Backstory   string `json:"backstory"`
}
