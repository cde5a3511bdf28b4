// Package password implements the password policy: strength rules and
// bcrypt hashing.
package password

import (
	"fmt"
	"regexp"
	"sync"

	"github.com/dmitrijs2005/authkeeper/internal/common"
	validation "github.com/go-ozzo/ozzo-validation"
	"golang.org/x/crypto/bcrypt"
)

// Rule names reported in the WeakPassword details.
const (
	RuleMinLength = "min_length"
	RuleMaxLength = "max_length"
	RuleLowercase = "lowercase"
	RuleUppercase = "uppercase"
	RuleDigit     = "digit"
)

var (
	lowercase = regexp.MustCompile(`[a-z]`)
	uppercase = regexp.MustCompile(`[A-Z]`)
	digit     = regexp.MustCompile(`[0-9]`)
)

// dummySecret is hashed once and compared against for unknown accounts so
// that a login for a missing email costs one bcrypt comparison too.
const dummySecret = "authkeeper-dummy-password"

type Policy struct {
	minLength int
	maxLength int
	cost      int

	dummyOnce sync.Once
	dummyHash []byte
}

// New returns a Policy. maxLength is measured in bytes since bcrypt only
// reads the first 72 of them.
func New(minLength, maxLength, cost int) *Policy {
	return &Policy{minLength: minLength, maxLength: maxLength, cost: cost}
}

type namedRule struct {
	name  string
	rules []validation.Rule
}

func (p *Policy) rules() []namedRule {
	minMsg := fmt.Sprintf("Password must be at least %d characters long", p.minLength)
	return []namedRule{
		{RuleMinLength, []validation.Rule{
			validation.Required.Error(minMsg),
			validation.RuneLength(p.minLength, 0).Error(minMsg),
		}},
		{RuleMaxLength, []validation.Rule{
			validation.Length(0, p.maxLength).Error(fmt.Sprintf("Password cannot exceed %d characters", p.maxLength)),
		}},
		{RuleLowercase, []validation.Rule{
			validation.Match(lowercase).Error("Password must contain at least one lowercase letter"),
		}},
		{RuleUppercase, []validation.Rule{
			validation.Match(uppercase).Error("Password must contain at least one uppercase letter"),
		}},
		{RuleDigit, []validation.Rule{
			validation.Match(digit).Error("Password must contain at least one number"),
		}},
	}
}

// Violations returns every failed rule keyed by rule name, or nil.
func (p *Policy) Violations(password string) validation.Errors {
	errs := validation.Errors{}
	for _, r := range p.rules() {
		if err := validation.Validate(password, r.rules...); err != nil {
			errs[r.name] = err
		}
	}
	if len(errs) == 0 {
		return nil
	}
	return errs
}

// ValidateStrength returns a WeakPassword domain error naming the failed
// rules. The message is the first failure in rule order.
func (p *Policy) ValidateStrength(password string) error {
	errs := p.Violations(password)
	if errs == nil {
		return nil
	}

	var failed []string
	message := ""
	for _, r := range p.rules() {
		if err, ok := errs[r.name]; ok {
			failed = append(failed, r.name)
			if message == "" {
				message = err.Error()
			}
		}
	}

	return common.NewError(common.ErrWeakPassword, message, map[string]any{
		"rules":      failed,
		"violations": errs,
	})
}

// Hash returns the bcrypt hash of password.
func (p *Policy) Hash(password string) (string, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(password), p.cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(h), nil
}

// Verify reports whether password matches hash.
func (p *Policy) Verify(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// VerifyDummy spends one comparison against a fixed hash and always fails.
func (p *Policy) VerifyDummy(password string) {
	p.dummyOnce.Do(func() {
		h, err := bcrypt.GenerateFromPassword([]byte(dummySecret), p.cost)
		if err == nil {
			p.dummyHash = h
		}
	})
	if p.dummyHash == nil {
		return
	}
	_ = bcrypt.CompareHashAndPassword(p.dummyHash, []byte(password))
}
