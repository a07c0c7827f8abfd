// Package locale maps the repository's numeric language codes (LCIDs) to
// BCP 47 tags and human-readable names.
package locale

import (
	"sort"
	"strconv"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// lcids covers the languages the repository can provision.
var lcids = map[int]string{
	1025: "ar-SA", 1026: "bg-BG", 1027: "ca-ES", 1028: "zh-TW", 1029: "cs-CZ",
	1030: "da-DK", 1031: "de-DE", 1032: "el-GR", 1033: "en-US", 1035: "fi-FI",
	1036: "fr-FR", 1037: "he-IL", 1038: "hu-HU", 1040: "it-IT", 1041: "ja-JP",
	1042: "ko-KR", 1043: "nl-NL", 1044: "nb-NO", 1045: "pl-PL", 1046: "pt-BR",
	1048: "ro-RO", 1049: "ru-RU", 1050: "hr-HR", 1051: "sk-SK", 1053: "sv-SE",
	1054: "th-TH", 1055: "tr-TR", 1057: "id-ID", 1058: "uk-UA", 1060: "sl-SI",
	1061: "et-EE", 1062: "lv-LV", 1063: "lt-LT", 1066: "vi-VN", 1069: "eu-ES",
	1081: "hi-IN", 1086: "ms-MY", 1087: "kk-KZ", 1110: "gl-ES", 2052: "zh-CN",
	2070: "pt-PT", 2074: "sr-Latn-RS", 3076: "zh-HK", 3082: "es-ES", 3098: "sr-Cyrl-RS",
}

// Tag returns the BCP 47 tag for an LCID.
func Tag(lcid int) (language.Tag, bool) {
	s, ok := lcids[lcid]
	if !ok {
		return language.Und, false
	}
	return language.MustParse(s), true
}

// Name returns the English name of an LCID, e.g. "French (France)". Unknown
// codes render as the number.
func Name(lcid int) string {
	tag, ok := Tag(lcid)
	if !ok {
		return strconv.Itoa(lcid)
	}
	if n := display.English.Tags().Name(tag); n != "" {
		return n
	}
	return tag.String()
}

// SelfName returns the language's name in itself, e.g. "français (France)".
func SelfName(lcid int) string {
	tag, ok := Tag(lcid)
	if !ok {
		return strconv.Itoa(lcid)
	}
	if n := display.Self.Name(tag); n != "" {
		return n
	}
	return Name(lcid)
}

// Parse accepts an LCID ("1036") or a language tag ("fr-FR", "fr") and
// returns the LCID. A bare language matches its first provisioned region in
// code order.
func Parse(s string) (int, bool) {
	s = strings.TrimSpace(s)
	if n, err := strconv.Atoi(s); err == nil {
		return n, n > 0
	}
	want, err := language.Parse(s)
	if err != nil {
		return 0, false
	}

	codes := make([]int, 0, len(lcids))
	for code := range lcids {
		codes = append(codes, code)
	}
	sort.Ints(codes)

	for _, code := range codes {
		if strings.EqualFold(lcids[code], want.String()) {
			return code, true
		}
	}
	wantBase, _ := want.Base()
	for _, code := range codes {
		tag := language.MustParse(lcids[code])
		if base, _ := tag.Base(); base == wantBase {
			return code, true
		}
	}
	return 0, false
}

// Language describes one LCID for listings.
type Language struct {
	LCID     int    `json:"lcid"`
	Tag      string `json:"tag,omitempty"`
	Name     string `json:"name"`
	SelfName string `json:"self_name"`
	Base     bool   `json:"base,omitempty"`
}

// Describe builds listing entries for codes, flagging base.
func Describe(codes []int, base int) []Language {
	out := make([]Language, len(codes))
	for i, c := range codes {
		l := Language{LCID: c, Name: Name(c), SelfName: SelfName(c), Base: c == base}
		if tag, ok := Tag(c); ok {
			l.Tag = tag.String()
		}
		out[i] = l
	}
	return out
}
