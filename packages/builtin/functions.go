package builtin

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"math/rand"
	"net/url"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Func computes a value from already-unquoted arguments.
type Func func(args []string) (string, error)

type Registry struct {
	funcs map[string]Func
}

func NewRegistry() *Registry {
	r := &Registry{
		funcs: make(map[string]Func),
	}
	r.registerDefaults()
	return r
}

func (r *Registry) registerDefaults() {
	r.funcs["now"] = funcNow
	r.funcs["timestamp"] = funcTimestamp
	r.funcs["timestampMs"] = funcTimestampMs
	r.funcs["date"] = funcDate
	r.funcs["uuid"] = funcUUID
	r.funcs["random"] = funcRandom
	r.funcs["randomString"] = funcRandomString
	r.funcs["randomEmail"] = funcRandomEmail
	r.funcs["base64"] = funcBase64
	r.funcs["urlEncode"] = funcURLEncode
	r.funcs["sha256"] = funcSHA256
}

// Register adds or replaces a function.
func (r *Registry) Register(name string, fn Func) {
	r.funcs[name] = fn
}

// Names lists the registered functions in order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.funcs))
	for name := range r.funcs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

var funcCallPattern = regexp.MustCompile(`^(\w+)\((.*)\)$`)

// Call evaluates an expression such as `random(1, 10)`. ok is false when
// expr is not a call to a registered function.
func (r *Registry) Call(expr string) (value string, ok bool, err error) {
	matches := funcCallPattern.FindStringSubmatch(strings.TrimSpace(expr))
	if matches == nil {
		return "", false, nil
	}

	fn, found := r.funcs[matches[1]]
	if !found {
		return "", false, nil
	}

	var args []string
	if strings.TrimSpace(matches[2]) != "" {
		args = parseArgs(matches[2])
	}

	value, err = fn(args)
	if err != nil {
		return "", true, fmt.Errorf("%s(): %w", matches[1], err)
	}
	return value, true, nil
}

// parseArgs splits on commas outside single or double quotes.
func parseArgs(s string) []string {
	var args []string
	var current strings.Builder
	quote := byte(0)

	for i := 0; i < len(s); i++ {
		ch := s[i]
		switch {
		case quote == 0 && (ch == '"' || ch == '\''):
			quote = ch
		case quote != 0 && ch == quote:
			quote = 0
		case quote == 0 && ch == ',':
			args = append(args, strings.TrimSpace(current.String()))
			current.Reset()
		default:
			current.WriteByte(ch)
		}
	}
	return append(args, strings.TrimSpace(current.String()))
}

func intArg(args []string, i, def int) (int, error) {
	if len(args) <= i || args[i] == "" {
		return def, nil
	}
	v, err := strconv.Atoi(args[i])
	if err != nil {
		return 0, fmt.Errorf("argument %d: %q is not an integer", i+1, args[i])
	}
	return v, nil
}

func requireArg(args []string) (string, error) {
	if len(args) < 1 {
		return "", fmt.Errorf("missing argument")
	}
	return args[0], nil
}

func funcNow(_ []string) (string, error) {
	return time.Now().UTC().Format(time.RFC3339), nil
}

func funcTimestamp(_ []string) (string, error) {
	return strconv.FormatInt(time.Now().Unix(), 10), nil
}

func funcTimestampMs(_ []string) (string, error) {
	return strconv.FormatInt(time.Now().UnixMilli(), 10), nil
}

func funcDate(args []string) (string, error) {
	layout := "2006-01-02"
	if len(args) >= 1 && args[0] != "" {
		layout = args[0]
	}
	return time.Now().UTC().Format(layout), nil
}

func funcUUID(_ []string) (string, error) {
	return uuid.NewString(), nil
}

func funcRandom(args []string) (string, error) {
	min, err := intArg(args, 0, 0)
	if err != nil {
		return "", err
	}
	max, err := intArg(args, 1, 100)
	if err != nil {
		return "", err
	}
	if max < min {
		return "", fmt.Errorf("max %d is below min %d", max, min)
	}
	return strconv.Itoa(rand.Intn(max-min+1) + min), nil
}

const alphanumeric = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

func funcRandomString(args []string) (string, error) {
	length, err := intArg(args, 0, 16)
	if err != nil {
		return "", err
	}
	if length < 0 {
		return "", fmt.Errorf("negative length %d", length)
	}
	return randomString(length, alphanumeric), nil
}

func funcRandomEmail(_ []string) (string, error) {
	user := randomString(8, "abcdefghijklmnopqrstuvwxyz")
	domain := randomString(6, "abcdefghijklmnopqrstuvwxyz")
	return user + "@" + domain + ".test", nil
}

func funcBase64(args []string) (string, error) {
	v, err := requireArg(args)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString([]byte(v)), nil
}

func funcURLEncode(args []string) (string, error) {
	v, err := requireArg(args)
	if err != nil {
		return "", err
	}
	return url.QueryEscape(v), nil
}

func funcSHA256(args []string) (string, error) {
	v, err := requireArg(args)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256([]byte(v))
	return hex.EncodeToString(sum[:]), nil
}

func randomString(length int, charset string) string {
	result := make([]byte, length)
	for i := range result {
		result[i] = charset[rand.Intn(len(charset))]
	}
	return string(result)
}
