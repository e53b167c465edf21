package template

import (
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/PaesslerAG/jsonpath"
	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
)

const (
	asciiHex   = "0123456789ABCDEF"
	asciiNum   = "0123456789"
	asciiAlnum = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
)

var (
	zhSurnames = []string{"王", "李", "张", "刘", "陈", "杨", "黄", "赵", "吴", "周", "徐", "孙", "马", "朱", "胡", "郭", "何", "高", "林", "罗"}
	zhGiven    = []string{"伟", "芳", "娜", "敏", "静", "丽", "强", "磊", "军", "洋", "勇", "艳", "杰", "娟", "涛", "明", "超", "秀英", "霞", "平", "刚", "桂英", "浩然", "子涵", "欣怡"}
)

func fakeFuncs() map[string]Func {
	return map[string]Func{
		"NAME":        fakeName,
		"NUM":         fakeNum,
		"NUM_STR":     charsetFunc("NUM_STR", asciiNum),
		"HEX":         charsetFunc("HEX", asciiHex),
		"STR":         charsetFunc("STR", asciiAlnum),
		"PASSWORD":    fakePassword,
		"EMAIL":       noArg("EMAIL", gofakeit.Email),
		"USERNAME":    noArg("USERNAME", gofakeit.Username),
		"IPV4":        noArg("IPV4", gofakeit.IPv4Address),
		"IPV6":        noArg("IPV6", gofakeit.IPv6Address),
		"MAC":         noArg("MAC", gofakeit.MacAddress),
		"USERAGENT":   noArg("USERAGENT", gofakeit.UserAgent),
		"UUID":        noArg("UUID", func() string { return uuid.NewString() }),
		"UUID_SIMPLE": noArg("UUID_SIMPLE", func() string { return strings.ReplaceAll(uuid.NewString(), "-", "") }),
		"CHOOSE":      choose,
		"INT":         toInt,
		"JSONPATH":    jsonPath,
	}
}

func codecFuncs() map[string]Func {
	return map[string]Func{
		"BASE64_EN":  base64Encode,
		"BASE64_DE":  base64Decode,
		"AES_ECB_EN": aesFunc("AES_ECB_EN", aesECB, true),
		"AES_ECB_DE": aesFunc("AES_ECB_DE", aesECB, false),
		"AES_CBC_EN": aesFunc("AES_CBC_EN", aesCBC, true),
		"AES_CBC_DE": aesFunc("AES_CBC_DE", aesCBC, false),
		"AES_CTR_EN": aesFunc("AES_CTR_EN", aesCTR, true),
		"AES_CTR_DE": aesFunc("AES_CTR_DE", aesCTR, false),
	}
}

func noArg(name string, gen func() string) Func {
	return func(args ...any) (any, error) {
		if err := argCount(name, args, 0, 0); err != nil {
			return nil, err
		}
		return gen(), nil
	}
}

// fakeName 默认中文名, 参数为 "en" 时返回英文名
func fakeName(args ...any) (any, error) {
	if err := argCount("NAME", args, 0, 1); err != nil {
		return nil, err
	}
	lang, ok, err := optString("NAME", args, 0)
	if err != nil {
		return nil, err
	}
	if ok && strings.EqualFold(lang, "en") {
		return gofakeit.Name(), nil
	}
	return gofakeit.RandomString(zhSurnames) + gofakeit.RandomString(zhGiven), nil
}

func fakeNum(args ...any) (any, error) {
	low, high, err := argRange("NUM", args)
	if err != nil {
		return nil, err
	}
	return strconv.FormatInt(randRange(low, high), 10), nil
}

// charsetFunc 长度在 [low, high) 内的随机字符串
func charsetFunc(name, charset string) Func {
	return func(args ...any) (any, error) {
		low, high, err := argRange(name, args)
		if err != nil {
			return nil, err
		}
		n := randRange(low, high)
		var b strings.Builder
		b.Grow(int(n))
		for i := int64(0); i < n; i++ {
			b.WriteByte(charset[gofakeit.Number(0, len(charset)-1)])
		}
		return b.String(), nil
	}
}

func fakePassword(args ...any) (any, error) {
	low, high, err := argRange("PASSWORD", args)
	if err != nil {
		return nil, err
	}
	n := int(randRange(low, high))
	if n == 0 {
		return "", nil
	}
	return gofakeit.Password(true, true, true, false, false, n), nil
}

// randRange 返回 [low, high) 内的随机数
func randRange(low, high int64) int64 {
	return low + int64(gofakeit.Number(0, int(high-low-1)))
}

// choose 按 '|' 切分后随机取一个
func choose(args ...any) (any, error) {
	if err := argCount("CHOOSE", args, 1, 1); err != nil {
		return nil, err
	}
	s, err := argString("CHOOSE", args, 0)
	if err != nil {
		return nil, err
	}
	if s == "" {
		return nil, fmt.Errorf("CHOOSE: empty candidates")
	}
	return gofakeit.RandomString(strings.Split(s, "|")), nil
}

func toInt(args ...any) (any, error) {
	if err := argCount("INT", args, 1, 1); err != nil {
		return nil, err
	}
	s := toString(args[0])
	n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 32)
	if err != nil {
		return nil, fmt.Errorf("INT: %s cant turn to int", s)
	}
	return int(n), nil
}

func base64Encode(args ...any) (any, error) {
	if err := argCount("BASE64_EN", args, 1, 1); err != nil {
		return nil, err
	}
	s, err := argString("BASE64_EN", args, 0)
	if err != nil {
		return nil, err
	}
	return base64.StdEncoding.EncodeToString([]byte(s)), nil
}

// base64Decode 解码失败或结果不是 UTF-8 时原样返回
func base64Decode(args ...any) (any, error) {
	if err := argCount("BASE64_DE", args, 1, 1); err != nil {
		return nil, err
	}
	s, err := argString("BASE64_DE", args, 0)
	if err != nil {
		return nil, err
	}
	b, err := base64.StdEncoding.DecodeString(s)
	if err != nil || !utf8.Valid(b) {
		return s, nil
	}
	return string(b), nil
}

// jsonPath JSONPATH("$.user.name", body)
func jsonPath(args ...any) (any, error) {
	if err := argCount("JSONPATH", args, 2, 2); err != nil {
		return nil, err
	}
	path, err := argString("JSONPATH", args, 0)
	if err != nil {
		return nil, err
	}
	if !strings.HasPrefix(path, "$") {
		path = "$" + path
	}
	res, err := jsonpath.Get(path, args[1])
	if err != nil {
		return nil, fmt.Errorf("JSONPATH: %w", err)
	}
	return res, nil
}
