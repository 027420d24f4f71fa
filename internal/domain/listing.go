package domain

// Listing 是在某个来源上发现的一条目录项（文件或文件夹）。
//
// 约束：
// - TargetURL 必须是绝对 URL（已按来源 base 解析）
// - SourceID 在抓取之后由聚合层附加（fetcher 不关心来源 id）
type Listing struct {
	Name         string
	Kind         Kind // 仅 movie / series
	TargetURL    string
	HasDualAudio bool
	HasSubtitles bool
	SourceID     string
}

// MatchCandidate 是带评分的 Listing。
// 排序关系：Score 降序；同分保持首次出现顺序（稳定排序）。
type MatchCandidate struct {
	Listing
	Score int
}
