package period

import (
	"fmt"
	"time"
)

// Bounds 是一次计算得到的四个 UTC 边界时刻：当日零点、次日零点、
// 当月一日零点、次月一日零点，零点均指配置时区的本地午夜。
type Bounds struct {
	TodayStart time.Time
	TodayEnd   time.Time
	MonthStart time.Time
	MonthEnd   time.Time
}

// Calculator 负责把“今天/本月”换算成配置时区下的绝对 UTC 区间。
type Calculator struct {
	location *time.Location
}

// NewCalculator 按 IANA 时区名构造边界计算器，时区非法立即报错，
// 调用方应在启动阶段处理而不是每次请求时兜底。
func NewCalculator(timezone string) (*Calculator, error) {
	location, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", timezone, err)
	}
	return &Calculator{location: location}, nil
}

// Location 返回计算器使用的时区。
func (c *Calculator) Location() *time.Location {
	return c.location
}

// Boundaries 计算 now 所处民用日/月的 UTC 边界。
//
// 夏令时判断采用参考日探测：取同一年冬季（1 月 1 日）与夏季（7 月 1 日）
// 两个参考时刻的 UTC 偏移，偏西更多的一个视为标准时；当前偏移与标准时
// 不一致即认为处于夏令时，并用对应的固定小时偏移构造边界。
// “次日”“次月”直接以越界的日/月分量交给 time.Date 归一化，
// 月末与年末的进位由日历规则保证正确。
func (c *Calculator) Boundaries(now time.Time) Bounds {
	local := now.In(c.location)
	year, month, day := local.Date()

	_, winterOffset := time.Date(year, time.January, 1, 12, 0, 0, 0, c.location).Zone()
	_, summerOffset := time.Date(year, time.July, 1, 12, 0, 0, 0, c.location).Zone()

	standardOffset := winterOffset
	daylightOffset := summerOffset
	if summerOffset < winterOffset {
		standardOffset, daylightOffset = summerOffset, winterOffset
	}

	_, liveOffset := local.Zone()
	offset := standardOffset
	if liveOffset != standardOffset {
		offset = daylightOffset
	}

	shift := -time.Duration(offset) * time.Second
	return Bounds{
		TodayStart: time.Date(year, month, day, 0, 0, 0, 0, time.UTC).Add(shift),
		TodayEnd:   time.Date(year, month, day+1, 0, 0, 0, 0, time.UTC).Add(shift),
		MonthStart: time.Date(year, month, 1, 0, 0, 0, 0, time.UTC).Add(shift),
		MonthEnd:   time.Date(year, month+1, 1, 0, 0, 0, 0, time.UTC).Add(shift),
	}
}
