package recon

import (
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
	"golang.org/x/text/unicode/norm"
)

// maxExponent 金额的十进制指数上限；超出视为无法解析
const maxExponent = 20

// NormalizeOrderNumber 规范化订单号：只保留十进制数字（Unicode Nd）
// 空白、字母、符号及上标等非 Nd 数字全部去除；保留下来的全角数字再折叠为半角。
// 无数字时返回空串。
func NormalizeOrderNumber(text string) string {
	text = strings.TrimSpace(text)
	if text == "" {
		return ""
	}

	var b strings.Builder
	b.Grow(len(text))
	for _, r := range text {
		if unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return norm.NFKC.String(b.String())
}

// ToNumber 将单元格文本转换为金额
// 空文本返回 def；去掉 ¥、千分位逗号和空白后解析。解析失败或指数超出 ±20 时同样返回 def，不报错。
func ToNumber(text string, def decimal.Decimal) decimal.Decimal {
	text = strings.TrimSpace(text)
	if text == "" {
		return def
	}
	text = norm.NFKC.String(text)
	text = strings.Map(func(r rune) rune {
		if r == '¥' || r == ',' || unicode.IsSpace(r) {
			return -1
		}
		return r
	}, text)

	d, err := decimal.NewFromString(text)
	if err != nil {
		return def
	}
	if exp := d.Exponent(); exp > maxExponent || exp < -maxExponent {
		return def
	}
	return d
}
