package model

// All 返回需要迁移的全部模型，顺序即建表顺序
func All() []interface{} {
	return []interface{}{&User{}, &Group{}, &Post{}, &Comment{}, &Follow{}}
}
