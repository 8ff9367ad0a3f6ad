// internal/models/character.go
package models

// Character 表示角色目录中的一个角色
// 目录以展示名称为键，JSON字段与 characters.json 保持一致
type Character struct {
	Description     string   `json:"description"`
	Voice           string   `json:"voice"`
	Category        string   `json:"category"`
	Scenes          []string `json:"scenes"`
	Dialogue        []string `json:"dialogue"`
	ProfileImageURL string   `json:"profile_image_url,omitempty"`
}

// Clone 返回角色的深拷贝
// 覆盖存储采用"复制生效值再合并"的模式，切片不能与目录共享
func (c *Character) Clone() *Character {
	if c == nil {
		return nil
	}

	clone := *c
	clone.Scenes = append([]string(nil), c.Scenes...)
	clone.Dialogue = append([]string(nil), c.Dialogue...)
	return &clone
}

// CompatibleWith 检查角色是否与指定场景兼容
func (c *Character) CompatibleWith(sceneName string) bool {
	for _, s := range c.Scenes {
		if s == sceneName {
			return true
		}
	}
	return false
}

// CharacterEdit 角色编辑请求体，nil 字段表示不修改
type CharacterEdit struct {
	Description *string  `json:"description"`
	Voice       *string  `json:"voice"`
	Category    *string  `json:"category"`
	Scenes      []string `json:"scenes"`
	Dialogue    []string `json:"dialogue"`
}

// CompatibilityResult 单个角色与所选场景的兼容性判定
type CompatibilityResult struct {
	Character  string `json:"character"`
	Scene      string `json:"scene"`
	Compatible bool   `json:"compatible"`
}

// CompatibilityReport 兼容性检查结果
// 未选择场景或角色时 Ready 为 false，Message 说明原因
type CompatibilityReport struct {
	Ready   bool                  `json:"ready"`
	Message string                `json:"message,omitempty"`
	Results []CompatibilityResult `json:"results,omitempty"`
}
