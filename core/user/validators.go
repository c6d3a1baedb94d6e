package user

import (
	"bufio"
	"compress/gzip"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync"
	"unicode"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pmezard/go-difflib/difflib"

	"github.com/trezcool/jamii/core"
	appfs "github.com/trezcool/jamii/fs"
)

const (
	pwdMinLen     = 8
	pwdMaxSim     = .7
	usernameOrTag = "username_or_email"
)

var (
	specialCharRegex = regexp.MustCompile("[^A-Za-z0-9]")

	commonPasswords     []string // sorted, lower case
	commonPasswordsPath = "data/common-passwords.txt.gz"
	commonPasswordsOnce sync.Once
)

// pwdAttrs are the user attributes a password must not resemble.
type pwdAttrs []string

// passwordCheck is one rule of the password policy. ok reports whether pwd satisfies it.
type passwordCheck struct {
	tag  string
	text string
	ok   func(pwd []rune, attrs pwdAttrs) bool
}

// passwordPolicy is evaluated in order; only the first failing check is reported.
var passwordPolicy = []passwordCheck{
	{
		tag:  "pwdminlen",
		text: fmt.Sprintf("password must contain at least %d characters", pwdMinLen),
		ok:   func(pwd []rune, _ pwdAttrs) bool { return len(pwd) >= pwdMinLen },
	},
	{
		tag:  "pwdnospace",
		text: "password must not contain whitespace",
		ok: func(pwd []rune, _ pwdAttrs) bool {
			return !anyRune(pwd, unicode.IsSpace)
		},
	},
	{
		tag:  "pwdnotallnum",
		text: "password cannot be entirely numeric",
		ok: func(pwd []rune, _ pwdAttrs) bool {
			return anyRune(pwd, func(r rune) bool { return !unicode.IsDigit(r) })
		},
	},
	{
		tag:  "pwdcplx",
		text: "password must contain at least 1 uppercase character, 1 lowercase character, 1 digit and 1 special character",
		ok: func(pwd []rune, _ pwdAttrs) bool {
			return anyRune(pwd, unicode.IsUpper) &&
				anyRune(pwd, unicode.IsLower) &&
				anyRune(pwd, unicode.IsDigit) &&
				specialCharRegex.MatchString(string(pwd))
		},
	},
	{
		tag:  "pwdtoosim",
		text: "password cannot be similar to user attributes",
		ok: func(pwd []rune, attrs pwdAttrs) bool {
			chars := strings.Split(string(pwd), "")
			for _, attr := range attrs {
				if attr == "" {
					continue
				}
				if difflib.NewMatcher(chars, strings.Split(attr, "")).QuickRatio() >= pwdMaxSim {
					return false
				}
			}
			return true
		},
	},
	{
		tag:  "pwdnocommon",
		text: "password is too common",
		ok: func(pwd []rune, _ pwdAttrs) bool {
			lower := strings.ToLower(string(pwd))
			idx := sort.SearchStrings(commonPasswords, lower)
			return idx == len(commonPasswords) || commonPasswords[idx] != lower
		},
	},
}

// InitValidators registers the roles rule, the struct level user validation and the password policy messages.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	commonPasswordsOnce.Do(loadCommonPasswords)

	rules := []core.ValidationRule{
		{Tag: "allroles", Text: "invalid roles", Func: validRoles},
		{Tag: usernameOrTag, Text: "one of username or email is required"},
	}
	for _, check := range passwordPolicy {
		rules = append(rules, core.ValidationRule{Tag: check.tag, Text: check.text})
	}
	core.RegisterRules(validate, translator, rules...)

	validate.RegisterStructValidation(validateUserStruct, NewUser{}, UpdateUser{}, ResetUserPassword{})
}

func loadCommonPasswords() {
	file, err := appfs.FS.Open(commonPasswordsPath)
	if err != nil {
		return
	}
	defer file.Close()

	gz, err := gzip.NewReader(file)
	if err != nil {
		return
	}
	scanner := bufio.NewScanner(gz)
	for scanner.Scan() {
		if pwd := strings.TrimSpace(scanner.Text()); pwd != "" {
			commonPasswords = append(commonPasswords, strings.ToLower(pwd))
		}
	}
	sort.Strings(commonPasswords)
}

func validRoles(fl validator.FieldLevel) bool {
	roles, ok := fl.Field().Interface().([]string)
	if !ok {
		return false
	}
	for _, role := range roles {
		if !core.StringInSlice(role, AllRoles) {
			return false
		}
	}
	return true
}

func validateUserStruct(sl validator.StructLevel) {
	switch usr := sl.Current().Interface().(type) {
	case NewUser:
		if usr.Username == "" && usr.Email == "" {
			sl.ReportError(usr.Username, "username", "Username", usernameOrTag, "")
			sl.ReportError(usr.Email, "email", "Email", usernameOrTag, "")
		}
		checkPassword(sl, usr.Password, pwdAttrs{usr.Name, usr.Username, usr.Email})
	case UpdateUser:
		if usr.Password != "" {
			checkPassword(sl, usr.Password, pwdAttrs{usr.Name, usr.Username, usr.Email})
		}
	case ResetUserPassword:
		if usr.Password != "" {
			checkPassword(sl, usr.Password, nil)
		}
	}
}

func checkPassword(sl validator.StructLevel, pwd string, attrs pwdAttrs) {
	runes := []rune(pwd)
	for _, check := range passwordPolicy {
		if !check.ok(runes, attrs) {
			sl.ReportError(pwd, "password", "Password", check.tag, "")
			return
		}
	}
}

func anyRune(runes []rune, pred func(rune) bool) bool {
	for _, r := range runes {
		if pred(r) {
			return true
		}
	}
	return false
}
