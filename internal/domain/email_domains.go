package domain

import "strings"

var popularEmailDomains = map[string]struct{}{
	"gmail.com":                {},
	"googlemail.com":           {},
	"yahoo.com":                {},
	"yahoo.co.uk":              {},
	"yahoo.co.in":              {},
	"yahoo.co.jp":              {},
	"ymail.com":                {},
	"rocketmail.com":           {},
	"outlook.com":              {},
	"hotmail.com":              {},
	"hotmail.co.uk":            {},
	"hotmail.fr":               {},
	"live.com":                 {},
	"msn.com":                  {},
	"aol.com":                  {},
	"icloud.com":               {},
	"me.com":                   {},
	"mac.com":                  {},
	"protonmail.com":           {},
	"proton.me":                {},
	"pm.me":                    {},
	"zoho.com":                 {},
	"yandex.com":               {},
	"yandex.ru":                {},
	"mail.ru":                  {},
	"gmx.com":                  {},
	"gmx.de":                   {},
	"gmx.net":                  {},
	"web.de":                   {},
	"qq.com":                   {},
	"163.com":                  {},
	"126.com":                  {},
	"naver.com":                {},
	"hanmail.net":              {},
	"fastmail.com":             {},
	"tutanota.com":             {},
	"hey.com":                  {},
	"comcast.net":              {},
	"verizon.net":              {},
	"att.net":                  {},
	"sbcglobal.net":            {},
	"btinternet.com":           {},
	"orange.fr":                {},
	"free.fr":                  {},
	"laposte.net":              {},
	"libero.it":                {},
	"rediffmail.com":           {},
	"mail.com":                 {},
	"inbox.com":                {},
	"duck.com":                 {},
	"skiff.com":                {},
	"users.noreply.github.com": {},
}

// IsPopularEmailDomain reports whether domain belongs to a large shared
// provider where unrelated users routinely share a domain.
func IsPopularEmailDomain(domain string) bool {
	_, ok := popularEmailDomains[strings.ToLower(strings.TrimSpace(domain))]
	return ok
}
