// Package doctree is the in-memory tree host that literal tracking runs against.
//
// A Document is an index-based arena of nodes. Node identity is the arena slot:
// slots are never reused, so a node that is removed or replaced stays dead
// forever and Alive reports false for it. Text offsets are derived from
// the leaves and recomputed lazily after each committed transaction.
package doctree

import "strings"

// Language represents a supported source language.
type Language string

const (
	LangGo         Language = "go"
	LangKotlin     Language = "kotlin"
	LangJava       Language = "java"
	LangJavaScript Language = "javascript"
)

// SupportedLanguages lists every language with a grammar and evaluator.
var SupportedLanguages = []Language{LangGo, LangKotlin, LangJava, LangJavaScript}

// LanguageFromExtension maps a file extension (with or without dot) to a Language.
func LanguageFromExtension(ext string) (Language, bool) {
	switch strings.TrimPrefix(strings.ToLower(ext), ".") {
	case "go":
		return LangGo, true
	case "kt", "kts":
		return LangKotlin, true
	case "java":
		return LangJava, true
	case "js", "mjs", "cjs", "jsx":
		return LangJavaScript, true
	default:
		return "", false
	}
}

// ParseLanguage validates a language name.
func ParseLanguage(name string) (Language, bool) {
	lang := Language(strings.ToLower(name))
	for _, l := range SupportedLanguages {
		if l == lang {
			return l, true
		}
	}
	return "", false
}
