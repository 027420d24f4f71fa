package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/John-Robertt/dhakaflix/internal/domain"
)

type queryFlags struct {
	kind    string
	json    bool
	verbose bool
}

func (f *queryFlags) bind(cmd *cobra.Command, defKind string) {
	cmd.Flags().StringVarP(&f.kind, "type", "t", defKind, "内容类型：movie|series|anime")
	cmd.Flags().BoolVar(&f.json, "json", false, "输出 JSON（stdout 不是终端时默认开启）")
}

func newSearchCommand(ctx *commandContext) *cobra.Command {
	var flags queryFlags
	cmd := &cobra.Command{
		Use:   "search [query...]",
		Short: "在所有来源中搜索并按标题评分；不带查询时浏览分类首页",
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := domain.ParseKind(flags.kind)
			if err != nil {
				return err
			}
			a, err := ctx.openApp(searchObserver())
			if err != nil {
				return err
			}
			defer a.Close()

			cands := a.assembler.Search(cmd.Context(), strings.Join(args, " "), kind)
			out := cmd.OutOrStdout()
			if wantJSON(cmd, flags.json) {
				return writeJSON(out, candidatesJSON(cands))
			}
			if len(cands) == 0 {
				fmt.Fprintln(out, "没有找到结果")
				return nil
			}
			rows := make([][]string, 0, len(cands))
			for i, c := range cands {
				rows = append(rows, []string{
					strconv.Itoa(i + 1),
					c.SourceID,
					string(c.Kind),
					strconv.Itoa(c.Score),
					truncate(c.Name, 60),
					c.TargetURL,
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"#", "Source", "Kind", "Score", "Name", "URL"},
				rows,
				[]columnAlignment{alignRight, alignLeft, alignLeft, alignRight},
			))
			return nil
		},
	}
	flags.bind(cmd, string(domain.KindMovie))
	return cmd
}

type candidateJSON struct {
	Source       string      `json:"source"`
	Kind         domain.Kind `json:"kind"`
	Score        int         `json:"score"`
	Name         string      `json:"name"`
	URL          string      `json:"url"`
	ID           string      `json:"id"`
	HasDualAudio bool        `json:"dual_audio,omitempty"`
	HasSubtitles bool        `json:"subtitles,omitempty"`
}

func candidatesJSON(cands []domain.MatchCandidate) []candidateJSON {
	out := make([]candidateJSON, 0, len(cands))
	for _, c := range cands {
		out = append(out, candidateJSON{
			Source:       c.SourceID,
			Kind:         c.Kind,
			Score:        c.Score,
			Name:         c.Name,
			URL:          c.TargetURL,
			ID:           domain.SourceItemID(c.SourceID, c.TargetURL),
			HasDualAudio: c.HasDualAudio,
			HasSubtitles: c.HasSubtitles,
		})
	}
	return out
}

func newStreamsCommand(ctx *commandContext) *cobra.Command {
	var flags queryFlags
	cmd := &cobra.Command{
		Use:   "streams <id>",
		Short: "为 tt 标识、tt:季:集 或 来源:URL 汇总可播放地址",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := domain.ParseKind(flags.kind)
			if err != nil {
				return err
			}
			if _, err := domain.ParseExternalID(args[0]); err != nil {
				return err
			}
			a, err := ctx.openApp(searchObserver())
			if err != nil {
				return err
			}
			defer a.Close()

			streams := a.assembler.GetStreams(cmd.Context(), args[0], kind)
			if streams == nil {
				streams = []domain.Stream{}
			}
			out := cmd.OutOrStdout()
			if wantJSON(cmd, flags.json) {
				return writeJSON(out, map[string]any{"streams": streams})
			}
			if len(streams) == 0 {
				fmt.Fprintln(out, "没有可播放的地址")
				return nil
			}
			rows := make([][]string, 0, len(streams))
			for i, s := range streams {
				rows = append(rows, []string{
					strconv.Itoa(i + 1),
					s.Name,
					strings.ReplaceAll(s.Title, "\n", " · "),
					s.URL,
				})
			}
			fmt.Fprintln(out, renderTable([]string{"#", "Source", "Title", "URL"}, rows, []columnAlignment{alignRight}))
			return nil
		},
	}
	flags.bind(cmd, string(domain.KindMovie))
	return cmd
}

func newResolveCommand(ctx *commandContext) *cobra.Command {
	var flags queryFlags
	var sourceID string
	cmd := &cobra.Command{
		Use:   "resolve <url>",
		Short: "解析来源上的目录 URL（电影文件或按季的剧集）",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := ctx.openApp(nil)
			if err != nil {
				return err
			}
			defer a.Close()

			if _, err := a.registry.Lookup(sourceID); err != nil {
				return err
			}
			rc := a.assembler.Resolve(cmd.Context(), args[0], sourceID)
			out := cmd.OutOrStdout()
			if wantJSON(cmd, flags.json) {
				return writeJSON(out, rc)
			}
			if rc.Empty() {
				fmt.Fprintln(out, "没有解析到可播放内容")
				return nil
			}
			fmt.Fprintf(out, "%s (%s)\n", rc.Name, rc.Type)
			if rc.PosterURL != "" {
				fmt.Fprintf(out, "poster: %s\n", rc.PosterURL)
			}
			var rows [][]string
			switch rc.Type {
			case domain.ContentSeries:
				for _, ep := range rc.Episodes {
					rows = append(rows, []string{fmt.Sprintf("S%02dE%02d", ep.Season, ep.Episode), ep.Name, ep.URL})
				}
				fmt.Fprintln(out, renderTable([]string{"Episode", "Name", "URL"}, rows, nil))
			default:
				for _, v := range rc.VideoFiles {
					rows = append(rows, []string{v.Name, yesNo(v.HasDualAudio), yesNo(v.HasSubtitles), v.URL})
				}
				fmt.Fprintln(out, renderTable([]string{"Name", "Dual", "Subs", "URL"}, rows, nil))
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&sourceID, "source", "s", "", "来源 id（例如 dhakaflix14）")
	cmd.Flags().BoolVar(&flags.json, "json", false, "输出 JSON（stdout 不是终端时默认开启）")
	_ = cmd.MarkFlagRequired("source")
	return cmd
}

func newMetaCommand(ctx *commandContext) *cobra.Command {
	var flags queryFlags
	cmd := &cobra.Command{
		Use:   "meta <id>",
		Short: "输出 addon meta 对象；--trace 额外显示元数据服务的尝试链路",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := domain.ParseKind(flags.kind)
			if err != nil {
				return err
			}
			a, err := ctx.openApp(searchObserver())
			if err != nil {
				return err
			}
			defer a.Close()

			id, err := domain.ParseExternalID(args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if flags.verbose && id.Form != domain.IDSource {
				_, attempts, _ := a.meta.LookupTrace(cmd.Context(), kind, id.Canonical)
				if chain := formatAttemptChain(attempts); chain != "" {
					fmt.Fprintf(cmd.ErrOrStderr(), "meta attempts: %s\n", chain)
				}
			}

			m := a.assembler.GetMeta(cmd.Context(), args[0], kind)
			if wantJSON(cmd, flags.json) {
				return writeJSON(out, map[string]any{"meta": m})
			}
			if m == nil {
				fmt.Fprintln(out, "没有找到 meta")
				return nil
			}
			fmt.Fprintf(out, "%s (%s)\nid: %s\n", m.Name, m.Type, m.ID)
			if m.Poster != "" {
				fmt.Fprintf(out, "poster: %s\n", m.Poster)
			}
			if len(m.Videos) > 0 {
				rows := make([][]string, 0, len(m.Videos))
				for _, v := range m.Videos {
					rows = append(rows, []string{strconv.Itoa(v.Season), strconv.Itoa(v.Episode), v.Title})
				}
				fmt.Fprintln(out, renderTable([]string{"Season", "Episode", "Title"}, rows, []columnAlignment{alignRight, alignRight}))
			}
			return nil
		},
	}
	flags.bind(cmd, string(domain.KindMovie))
	cmd.Flags().BoolVar(&flags.verbose, "trace", false, "在 stderr 输出元数据服务尝试链路")
	return cmd
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}
