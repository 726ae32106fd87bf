package zone

// 文档注释：比对分类
// 背景：衡量查询点声明的方格号/标牌号与命中区域的一致程度；标牌号优先于方格号，区域外优先于两者。
// 约束：只使用命中列表的第一个区域，其余忽略（重叠区域按装载顺序取首个）；字符串原样比较，不做前导零等归一化。
func Classify(q Query, matches []Match) Outcome {
	if len(matches) == 0 {
		return Outcome{Code: CodeOutside}
	}
	first := matches[0]
	sign := q.ExpectedSign == first.SignNumber
	square := q.ExpectedSquare == first.SquareNumber
	out := Outcome{SignMatch: &sign, SquareMatch: &square}
	switch {
	case sign:
		out.Code = CodeFull
	case square:
		out.Code = CodeSquare
	default:
		out.Code = CodeNoMatch
	}
	return out
}
