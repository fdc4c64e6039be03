package object

import (
	"math"
	"strconv"
	"strings"
)

// parseInteger 先按整数解析，失败再按浮点解析并截断；结果由调用方收窄到目标宽度。
func parseInteger(raw string) (int64, error) {
	if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return n, nil
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, strconv.ErrRange
	}
	return int64(f), nil
}

// 收窄与二进制补码强转一致：int16(70000) == 4464。
func narrowInt16(n int64) int16 { return int16(n) }
func narrowInt8(n int64) int8   { return int8(n) }
func narrowUint8(n int64) uint8 { return uint8(n) }

func parseFloat32(raw string) (float32, error) {
	f, err := strconv.ParseFloat(raw, 32)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, strconv.ErrRange
	}
	return float32(f), nil
}

func formatFloat32(f float32) string {
	return strconv.FormatFloat(float64(f), 'f', -1, 32)
}

func parseBool(raw string) (bool, error) {
	n, err := parseInteger(strings.TrimSpace(raw))
	if err != nil {
		return false, err
	}
	return n != 0, nil
}

func formatBool(b bool) string {
	if b {
		return "1"
	}
	return "0"
}
