// Package milvus 提供 Milvus 向量数据库访问层实现
package milvus

import (
	"fmt"

	"github.com/milvus-io/milvus-sdk-go/v2/entity"
)

// ItemSchema 计费条目 Collection Schema
// 标量字段随向量一同存储，检索时可以直接做数值范围预过滤
func ItemSchema(collectionName string, dim int) *entity.Schema {
	return &entity.Schema{
		CollectionName: collectionName,
		Description:    "Billing code items for semantic candidate retrieval",
		Fields: []*entity.Field{
			{
				Name:       "item_number",
				DataType:   entity.FieldTypeVarChar,
				PrimaryKey: true,
				AutoID:     false,
				TypeParams: map[string]string{
					"max_length": "64",
				},
			},
			{
				Name:     "vector",
				DataType: entity.FieldTypeFloatVector,
				TypeParams: map[string]string{
					"dim": fmt.Sprintf("%d", dim),
				},
			},
			{
				Name:     "category_id",
				DataType: entity.FieldTypeVarChar,
				TypeParams: map[string]string{
					"max_length": "16",
				},
			},
			{
				Name:     "service_summary",
				DataType: entity.FieldTypeVarChar,
				TypeParams: map[string]string{
					"max_length": "65535",
				},
			},
			{
				Name:     "provider",
				DataType: entity.FieldTypeVarChar,
				TypeParams: map[string]string{
					"max_length": "512",
				},
			},
			{
				Name:     "location",
				DataType: entity.FieldTypeVarChar,
				TypeParams: map[string]string{
					"max_length": "512",
				},
			},
			{
				Name:     "start_age",
				DataType: entity.FieldTypeDouble,
			},
			{
				Name:     "end_age",
				DataType: entity.FieldTypeDouble,
			},
			{
				Name:     "start_time",
				DataType: entity.FieldTypeDouble,
			},
			{
				Name:     "end_time",
				DataType: entity.FieldTypeDouble,
			},
			{
				Name:     "gender_restriction",
				DataType: entity.FieldTypeInt64,
			},
		},
	}
}

// itemOutputFields 检索返回的标量字段
var itemOutputFields = []string{
	"item_number", "category_id", "service_summary", "provider", "location",
	"start_age", "end_age", "start_time", "end_time", "gender_restriction",
}
