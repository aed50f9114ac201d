package experiment

import (
	"math"
)

// VariantStats 是单个变体的累计指标。
type VariantStats struct {
	Name            string  `json:"name"`
	Assignments     int64   `json:"assignments"`
	Views           int64   `json:"views"`
	Clicks          int64   `json:"clicks"`
	Engagements     int64   `json:"engagements"`
	Sessions        int64   `json:"sessions"`
	AvgSessionSecs  float64 `json:"avg_session_secs"`
}

// ClickRate 点击率 = Clicks / Views，无曝光时为 0。
func (s *VariantStats) ClickRate() float64 {
	if s.Views == 0 {
		return 0
	}
	return float64(s.Clicks) / float64(s.Views)
}

// EngagementRate 互动率 = Engagements / Views，无曝光时为 0。
func (s *VariantStats) EngagementRate() float64 {
	if s.Views == 0 {
		return 0
	}
	return float64(s.Engagements) / float64(s.Views)
}

// Result 是两变体显著性检验的结论。
type Result struct {
	Significant bool     `json:"significant"`
	Confidence  float64  `json:"confidence"`
	PValue      float64  `json:"p_value"`
	// Winner 只在显著时给出，指向点击率更高的变体名
	Winner *string `json:"winner,omitempty"`
}

// Significance 对两个变体的点击率做双比例 z 检验（双尾）。
// 任一变体没有分到用户或没有曝光时无法检验，返回不显著、置信度 0、p 值 1。
// p < 0.05 视为显著。
func Significance(a, b VariantStats) Result {
	if a.Assignments == 0 || b.Assignments == 0 {
		return Result{Significant: false, Confidence: 0, PValue: 1}
	}
	n1, n2 := float64(a.Views), float64(b.Views)
	if n1 == 0 || n2 == 0 {
		return Result{Significant: false, Confidence: 0, PValue: 1}
	}

	p1 := float64(a.Clicks) / n1
	p2 := float64(b.Clicks) / n2

	// 合并比例与标准误
	pooled := (float64(a.Clicks) + float64(b.Clicks)) / (n1 + n2)
	se := math.Sqrt(pooled * (1 - pooled) * (1/n1 + 1/n2))
	if se == 0 {
		return Result{Significant: false, Confidence: 0, PValue: 1}
	}

	z := (p1 - p2) / se
	pValue := 2 * (1 - normalCDF(math.Abs(z)))

	res := Result{
		Significant: pValue < 0.05,
		Confidence:  1 - pValue,
		PValue:      pValue,
	}
	if res.Significant {
		winner := a.Name
		if p2 > p1 {
			winner = b.Name
		}
		res.Winner = &winner
	}
	return res
}

// normalCDF 标准正态分布的累积分布函数。
func normalCDF(x float64) float64 {
	return 0.5 * (1 + erf(x/math.Sqrt2))
}

// erf 误差函数的 Abramowitz-Stegun 7.1.26 近似，
// 最大绝对误差约 1.5e-7，对显著性判断足够。
func erf(x float64) float64 {
	sign := 1.0
	if x < 0 {
		sign = -1.0
		x = -x
	}

	const (
		a1 = 0.254829592
		a2 = -0.284496736
		a3 = 1.421413741
		a4 = -1.453152027
		a5 = 1.061405429
		p  = 0.3275911
	)

	t := 1.0 / (1.0 + p*x)
	y := 1.0 - (((((a5*t+a4)*t)+a3)*t+a2)*t+a1)*t*math.Exp(-x*x)
	return sign * y
}

// 实验结论的粗分类。
const (
	ClassInsufficientData      = "insufficient_data"
	ClassNotSignificant        = "not_significant"
	ClassMarginallySignificant = "marginally_significant"
	ClassSignificant           = "significant"
)

// 样本量门槛：每个变体至少 100 个用户、1000 次曝光才参与判断。
const (
	minAssignments = 100
	minViews       = 1000
)

// Classify 对一组变体的互动率差异做粗分类，给运营看盘用。
// 以最优和最差变体的相对差距为准：
// 差距 <5% 不显著，5%-15% 边缘显著，>15% 显著。
// 任一变体样本不足时返回 insufficient_data。
func Classify(variants []VariantStats) string {
	if len(variants) < 2 {
		return ClassInsufficientData
	}

	for i := range variants {
		if variants[i].Assignments < minAssignments || variants[i].Views < minViews {
			return ClassInsufficientData
		}
	}

	best, worst := variants[0].EngagementRate(), variants[0].EngagementRate()
	for i := 1; i < len(variants); i++ {
		r := variants[i].EngagementRate()
		if r > best {
			best = r
		}
		if r < worst {
			worst = r
		}
	}
	if worst == 0 {
		if best == 0 {
			return ClassNotSignificant
		}
		return ClassSignificant
	}

	spread := (best - worst) / worst
	switch {
	case spread < 0.05:
		return ClassNotSignificant
	case spread <= 0.15:
		return ClassMarginallySignificant
	default:
		return ClassSignificant
	}
}
