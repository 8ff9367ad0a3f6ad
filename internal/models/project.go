// internal/models/project.go
package models

// DialogueLine 对白序列中的一行
// speaker 保存角色键，之后取消选择角色也不回收这行（与前端行为一致）
type DialogueLine struct {
	Speaker string `json:"speaker"`
	Text    string `json:"text"`
}

// CameraShot 镜头序列中的一个镜头描述
// ShotType 和 Movement 都非空才算"完整"镜头，草稿镜头不进入生效序列
type CameraShot struct {
	ShotType    string `json:"type"`
	Movement    string `json:"movement"`
	Description string `json:"description,omitempty"`
}

// Complete 镜头类型和运镜方式均已填写
func (s *CameraShot) Complete() bool {
	return s.ShotType != "" && s.Movement != ""
}

// 可选的镜头类型与运镜方式
var (
	ShotTypes = []string{"wide", "medium", "close-up", "two-shot", "group-shot"}
	Movements = []string{"static", "pan", "tilt", "zoom"}
)

// ValidShotType 检查镜头类型是否在可选范围内（空值表示草稿，允许）
func ValidShotType(t string) bool {
	if t == "" {
		return true
	}
	for _, s := range ShotTypes {
		if s == t {
			return true
		}
	}
	return false
}

// ValidMovement 检查运镜方式是否在可选范围内（空值表示草稿，允许）
func ValidMovement(m string) bool {
	if m == "" {
		return true
	}
	for _, s := range Movements {
		if s == m {
			return true
		}
	}
	return false
}

// ProjectSnapshot 会话的完整可序列化快照
// JSON字段与前端导出的工程文件格式逐字段对应，prompt 为派生的便利字段
type ProjectSnapshot struct {
	Prompt             string                `json:"prompt"`
	SelectedCharacters []string              `json:"selectedCharacters"`
	SelectedScene      string                `json:"selectedScene"`
	DialogueSequence   []DialogueLine        `json:"dialogueSequence"`
	CameraSequence     []CameraShot          `json:"cameraSequence"`
	ModifiedCharacters map[string]*Character `json:"modifiedCharacters"`
	ModifiedScenes     map[string]*Scene     `json:"modifiedScenes"`
	PromptDuration     string                `json:"promptDuration"`
	PromptStyle        string                `json:"promptStyle"`
	PromptOutputFormat string                `json:"promptOutputFormat"`
	Generated          string                `json:"generated"`
}

// PromptToggles 提示词装配的三个开关
type PromptToggles struct {
	IncludeWelshAccent      bool `json:"includeWelshAccent"`
	IncludeEnsembleSupport  bool `json:"includeEnsembleSupport"`
	IncludeBroadcastQuality bool `json:"includeBroadcastQuality"`
}

// DefaultPromptToggles 前端复选框的默认勾选状态
func DefaultPromptToggles() PromptToggles {
	return PromptToggles{
		IncludeWelshAccent:      true,
		IncludeEnsembleSupport:  true,
		IncludeBroadcastQuality: true,
	}
}

// DashboardStats 仪表盘统计数据
type DashboardStats struct {
	SelectedCharacters int `json:"selected_characters"`
	DialogueLines      int `json:"dialogue_lines"`
	TotalCharacters    int `json:"total_characters"`
	TotalScenes        int `json:"total_scenes"`
}

// WorkflowStatus 工作流各步骤的完成标记
type WorkflowStatus struct {
	Characters bool `json:"characters"`
	Scene      bool `json:"scene"`
	Dialogue   bool `json:"dialogue"`
	Camera     bool `json:"camera"`
	Generator  bool `json:"generator"`
}

// GeneratorSummary 生成器页的汇总信息
type GeneratorSummary struct {
	Characters   string `json:"characters"`
	Scene        string `json:"scene"`
	Dialogue     string `json:"dialogue"`
	Camera       string `json:"camera"`
	Duration     string `json:"duration"`
	Style        string `json:"style"`
	OutputFormat string `json:"output_format"`
}
