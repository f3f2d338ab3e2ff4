// Package entity 定义领域实体
package entity

import (
	"strings"
)

// PatientSex 患者性别，空字符串表示未申报
type PatientSex string

const (
	SexUnspecified PatientSex = ""
	SexMale        PatientSex = "male"
	SexFemale      PatientSex = "female"
)

// ParsePatientSex 解析性别输入，无法识别时返回 SexUnspecified
func ParsePatientSex(s string) PatientSex {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "male", "m", "1":
		return SexMale
	case "female", "f", "2":
		return SexFemale
	default:
		return SexUnspecified
	}
}

// GenderRestriction 性别限制编码
// 0 无限制，1 禁止男性，2 禁止女性。
// 其它非零值视为存在某种限制：对任何已申报性别均不通过，
// 仅未申报性别的请求可以通过。
type GenderRestriction int64

const (
	GenderRestrictionNone     GenderRestriction = 0
	GenderRestrictionNoMale   GenderRestriction = 1
	GenderRestrictionNoFemale GenderRestriction = 2
)

// Allows 判断给定性别是否允许
func (g GenderRestriction) Allows(sex PatientSex) bool {
	switch g {
	case GenderRestrictionNone:
		return true
	case GenderRestrictionNoMale:
		return sex != SexMale
	case GenderRestrictionNoFemale:
		return sex != SexFemale
	default:
		// 未知编码按"存在限制"处理：未申报性别放行
		return sex == SexUnspecified
	}
}

// NumericRange 闭区间数值范围
type NumericRange struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// Contains 判断值是否落在闭区间内
func (r NumericRange) Contains(v float64) bool {
	return v >= r.Start && v <= r.End
}

// CandidateItem 候选计费条目
type CandidateItem struct {
	ItemNumber        string            `json:"item_number"`
	CategoryID        string            `json:"category_id"`
	ServiceSummary    string            `json:"service_summary"`
	Provider          string            `json:"provider,omitempty"`
	Location          string            `json:"location,omitempty"`
	AgeRange          NumericRange      `json:"age_range"`
	TimeRange         NumericRange      `json:"time_range"`
	GenderRestriction GenderRestriction `json:"gender_restriction"`
}

// MatchesProvider 医生类型子串匹配，不区分大小写；空查询视为匹配
func (c CandidateItem) MatchesProvider(provider string) bool {
	if provider == "" {
		return true
	}
	return strings.Contains(strings.ToLower(c.Provider), strings.ToLower(provider))
}

// MatchesLocation 就诊地点子串匹配，不区分大小写；空查询视为匹配
func (c CandidateItem) MatchesLocation(location string) bool {
	if location == "" {
		return true
	}
	return strings.Contains(strings.ToLower(c.Location), strings.ToLower(location))
}
