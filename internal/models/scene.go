// internal/models/scene.go
package models

// Scene 表示场景目录中的一个场景
// 目录以展示名称为键，JSON字段与 scenes.json 保持一致
type Scene struct {
	Description string `json:"description"`
	Subtitle    string `json:"subtitle"`
	Atmosphere  string `json:"atmosphere,omitempty"`
	Icon        string `json:"icon,omitempty"`
}

// SceneEdit 场景编辑请求体，nil 字段表示不修改
type SceneEdit struct {
	Description *string `json:"description"`
	Subtitle    *string `json:"subtitle"`
	Atmosphere  *string `json:"atmosphere"`
}

// Clone 返回场景的深拷贝
func (s *Scene) Clone() *Scene {
	if s == nil {
		return nil
	}

	clone := *s
	return &clone
}
