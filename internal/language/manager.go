package language

import (
	"sort"
	"strings"
	"sync"
)

// DefaultLanguage is used whenever a requested language is not supported
const DefaultLanguage = "pt"

// LanguageInfo contains information about a supported language
type LanguageInfo struct {
	Code       string `json:"code"`
	Name       string `json:"name"`
	NativeName string `json:"native_name"`
	IsEnabled  bool   `json:"is_enabled"`
}

// ValidationResult represents the result of language validation
type ValidationResult struct {
	Code         string `json:"code"`
	UsedFallback bool   `json:"used_fallback"`
}

// Manager handles language support and validation
type Manager struct {
	languages map[string]*LanguageInfo
	mu        sync.RWMutex
}

// NewManager creates a language manager with Portuguese and English enabled
func NewManager() *Manager {
	return &Manager{
		languages: map[string]*LanguageInfo{
			"pt": {
				Code:       "pt",
				Name:       "Portuguese",
				NativeName: "Português",
				IsEnabled:  true,
			},
			"en": {
				Code:       "en",
				Name:       "English",
				NativeName: "English",
				IsEnabled:  true,
			},
		},
	}
}

// baseCode reduces a tag such as "pt-BR" or "EN_us" to its primary subtag
func baseCode(code string) string {
	code = strings.ToLower(strings.TrimSpace(code))
	if i := strings.IndexAny(code, "-_"); i > 0 {
		code = code[:i]
	}
	return code
}

// IsSupported checks if a language code is supported and enabled
func (m *Manager) IsSupported(code string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	lang, exists := m.languages[baseCode(code)]
	return exists && lang.IsEnabled
}

// Validate returns the supported code for a request, falling back to the default
func (m *Manager) Validate(code string) ValidationResult {
	if m.IsSupported(code) {
		return ValidationResult{
			Code:         baseCode(code),
			UsedFallback: false,
		}
	}

	return ValidationResult{
		Code:         DefaultLanguage,
		UsedFallback: true,
	}
}

// GetLanguageInfo returns information about a language
func (m *Manager) GetLanguageInfo(code string) (LanguageInfo, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	lang, exists := m.languages[baseCode(code)]
	if !exists {
		return LanguageInfo{}, false
	}

	return *lang, true
}

// GetSupportedLanguages returns all enabled languages ordered by code
func (m *Manager) GetSupportedLanguages() []LanguageInfo {
	m.mu.RLock()
	defer m.mu.RUnlock()

	languages := make([]LanguageInfo, 0, len(m.languages))
	for _, lang := range m.languages {
		if lang.IsEnabled {
			languages = append(languages, *lang)
		}
	}
	sort.Slice(languages, func(i, j int) bool {
		return languages[i].Code < languages[j].Code
	})

	return languages
}
