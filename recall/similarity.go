package recall

// Jaccard 计算两个互动向量 key 集合的 Jaccard 系数：|交集| / |并集|，范围 [0,1]。
//
// 性质：对称（Jaccard(a,b) == Jaccard(b,a)）；非空集合与自身为 1.0；
// 任一侧为空集时定义为 0。只看 key 集合，权重不参与相似度本身——
// 权重在邻居信号聚合时才生效。
func Jaccard(a, b map[string]float64) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}

	small, big := a, b
	if len(b) < len(a) {
		small, big = b, a
	}

	inter := 0
	for k := range small {
		if _, ok := big[k]; ok {
			inter++
		}
	}

	union := len(a) + len(b) - inter
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}
