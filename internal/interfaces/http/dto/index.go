package dto

// BuildIndexRequest 索引构建请求
type BuildIndexRequest struct {
	CategoryID string `json:"category_id" binding:"required"`
}

// BuildIndexResponse 索引构建响应
type BuildIndexResponse struct {
	CategoryID string `json:"category_id"`
	Items      int    `json:"items"`
}

// CategoryListResponse 可用类目列表响应
type CategoryListResponse struct {
	Categories []string `json:"categories"`
}
