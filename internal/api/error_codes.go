// internal/api/error_codes.go
package api

// API错误代码常量
const (
	// 通用错误
	ErrorBadRequest    = "BAD_REQUEST"
	ErrorNotFound      = "NOT_FOUND"
	ErrorInternalError = "INTERNAL_ERROR"
	ErrorValidation    = "VALIDATION_ERROR"

	// 目录相关错误
	ErrorCatalogNotLoaded  = "CATALOG_NOT_LOADED"
	ErrorCatalogLoadFailed = "CATALOG_LOAD_FAILED"

	// 会话相关错误
	ErrorSessionNotFound = "SESSION_NOT_FOUND"

	// 角色与场景相关错误
	ErrorCharacterNotFound = "CHARACTER_NOT_FOUND"
	ErrorSceneNotFound     = "SCENE_NOT_FOUND"

	// 对白相关错误
	ErrorDialogueOptionInvalid = "DIALOGUE_OPTION_INVALID"

	// 提示词相关错误
	ErrorPromptPrecondition = "PROMPT_PRECONDITION_FAILED"

	// 工程导入导出相关错误
	ErrorProjectParseFailed = "PROJECT_PARSE_FAILED"
	ErrorExportFailed       = "EXPORT_FAILED"
)
