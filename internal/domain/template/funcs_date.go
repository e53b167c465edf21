package template

import (
	"fmt"
	"strings"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/lestrrat-go/strftime"
)

const (
	defaultDateFormat = "%Y-%m-%dT%H:%M:%S"
	randomDateSpan    = 3660 * 24 * time.Hour
)

// nowFunc 测试里替换
var nowFunc = time.Now

func dateFuncs() map[string]Func {
	return map[string]Func{
		"NOW":         now,
		"DATE":        randomDate,
		"DATE_BEFORE": dateBefore,
		"DATE_AFTER":  dateAfter,
		"DATE_BTW":    dateBetween,
		"DATE_ADD":    dateAdd,
	}
}

// NOW(fmt?) 本地时间
func now(args ...any) (any, error) {
	if err := argCount("NOW", args, 0, 1); err != nil {
		return nil, err
	}
	layout, err := formatArg("NOW", args, 0)
	if err != nil {
		return nil, err
	}
	return formatTime("NOW", layout, nowFunc())
}

// DATE(fmt?) 前后 3660 天内的随机时间
func randomDate(args ...any) (any, error) {
	if err := argCount("DATE", args, 0, 1); err != nil {
		return nil, err
	}
	layout, err := formatArg("DATE", args, 0)
	if err != nil {
		return nil, err
	}
	t := nowFunc().UTC()
	return formatTime("DATE", layout, dateRange(t.Add(-randomDateSpan), t.Add(randomDateSpan)))
}

// DATE_BEFORE(fmt, date) 3660 天前到 date 之间的随机时间, date 固定为默认格式
func dateBefore(args ...any) (any, error) {
	layout, pivot, err := fmtAndDate("DATE_BEFORE", args)
	if err != nil {
		return nil, err
	}
	start := nowFunc().UTC().Add(-randomDateSpan)
	return formatTime("DATE_BEFORE", layout, dateRange(start, pivot))
}

// DATE_AFTER(fmt, date) date 到 3660 天后之间的随机时间
func dateAfter(args ...any) (any, error) {
	layout, pivot, err := fmtAndDate("DATE_AFTER", args)
	if err != nil {
		return nil, err
	}
	end := nowFunc().UTC().Add(randomDateSpan)
	return formatTime("DATE_AFTER", layout, dateRange(pivot, end))
}

// DATE_BTW(start, end, fmt?) 起止时间都按 fmt 解析
func dateBetween(args ...any) (any, error) {
	if err := argCount("DATE_BTW", args, 2, 3); err != nil {
		return nil, err
	}
	layout, err := formatArg("DATE_BTW", args, 2)
	if err != nil {
		return nil, err
	}
	startStr, err := argString("DATE_BTW", args, 0)
	if err != nil {
		return nil, err
	}
	endStr, err := argString("DATE_BTW", args, 1)
	if err != nil {
		return nil, err
	}
	start, err := parseTime(layout, startStr, time.UTC)
	if err != nil {
		return nil, fmt.Errorf("DATE_BTW: start: %w", err)
	}
	end, err := parseTime(layout, endStr, time.UTC)
	if err != nil {
		return nil, fmt.Errorf("DATE_BTW: end: %w", err)
	}
	if end.Before(start) {
		return nil, fmt.Errorf("DATE_BTW: end %s is before start %s", endStr, startStr)
	}
	return formatTime("DATE_BTW", layout, dateRange(start, end))
}

// DATE_ADD(seconds, date?, fmt?) date 解析失败时以当前时间为基准
func dateAdd(args ...any) (any, error) {
	if err := argCount("DATE_ADD", args, 1, 3); err != nil {
		return nil, err
	}
	seconds, err := argInt("DATE_ADD", args, 0)
	if err != nil {
		return nil, err
	}
	layout, err := formatArg("DATE_ADD", args, 2)
	if err != nil {
		return nil, err
	}

	base := nowFunc()
	if dateStr, ok, err := optString("DATE_ADD", args, 1); err != nil {
		return nil, err
	} else if ok {
		if t, err := parseTime(defaultDateFormat, dateStr, time.Local); err == nil {
			base = t
		}
	}
	return formatTime("DATE_ADD", layout, base.Add(time.Duration(seconds)*time.Second))
}

// dateRange 区间为空时返回 start
func dateRange(start, end time.Time) time.Time {
	if !end.After(start) {
		return start
	}
	return gofakeit.DateRange(start, end)
}

func fmtAndDate(name string, args []any) (string, time.Time, error) {
	if err := argCount(name, args, 2, 2); err != nil {
		return "", time.Time{}, err
	}
	layout, err := argString(name, args, 0)
	if err != nil {
		return "", time.Time{}, err
	}
	dateStr, err := argString(name, args, 1)
	if err != nil {
		return "", time.Time{}, err
	}
	t, err := parseTime(defaultDateFormat, dateStr, time.UTC)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("%s: %s与%s格式不匹配", name, dateStr, defaultDateFormat)
	}
	return layout, t, nil
}

func formatArg(name string, args []any, i int) (string, error) {
	layout, ok, err := optString(name, args, i)
	if err != nil {
		return "", err
	}
	if !ok {
		return defaultDateFormat, nil
	}
	return layout, nil
}

func formatTime(name, layout string, t time.Time) (string, error) {
	s, err := strftime.Format(layout, t)
	if err != nil {
		return "", fmt.Errorf("%s: %w", name, err)
	}
	return s, nil
}

// strftime 指令到 Go 时间布局的映射, 只用于解析
var strftimeLayout = map[byte]string{
	'Y': "2006",
	'y': "06",
	'm': "01",
	'd': "02",
	'e': "_2",
	'H': "15",
	'I': "03",
	'M': "04",
	'S': "05",
	'p': "PM",
	'b': "Jan",
	'h': "Jan",
	'B': "January",
	'a': "Mon",
	'A': "Monday",
	'j': "002",
	'z': "-0700",
	'Z': "MST",
	'F': "2006-01-02",
	'T': "15:04:05",
	'R': "15:04",
	'D': "01/02/06",
	'%': "%",
}

// parseTime 按 strftime 格式解析时间
func parseTime(format, value string, loc *time.Location) (time.Time, error) {
	var layout strings.Builder
	for i := 0; i < len(format); i++ {
		c := format[i]
		if c != '%' || i == len(format)-1 {
			layout.WriteByte(c)
			continue
		}
		i++
		verb, ok := strftimeLayout[format[i]]
		if !ok {
			return time.Time{}, fmt.Errorf("unsupported directive %%%c in %q", format[i], format)
		}
		layout.WriteString(verb)
	}
	return time.ParseInLocation(layout.String(), value, loc)
}
