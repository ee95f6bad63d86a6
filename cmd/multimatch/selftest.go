package main

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"io"
	"math/rand"
	"reflect"

	"github.com/zoeyai/multimatch/pkg/vision"
	"github.com/zoeyai/multimatch/pkg/vision/heatmap"
)

// selfCheck 一项自检
type selfCheck struct {
	name string
	run  func() error
}

// runSelfTest 运行内置自检，返回进程退出码
func runSelfTest(w io.Writer) int {
	checks := selfChecks()
	failed := 0
	for _, c := range checks {
		if err := c.run(); err != nil {
			failed++
			fmt.Fprintf(w, "FAIL  %s: %v\n", c.name, err)
			continue
		}
		fmt.Fprintf(w, "ok    %s\n", c.name)
	}

	fmt.Fprintf(w, "%d/%d 通过\n", len(checks)-failed, len(checks))
	if failed > 0 {
		return 1
	}
	return 0
}

func selfChecks() []selfCheck {
	return []selfCheck{
		{"overlapping 相邻", func() error {
			return expect(heatmap.Overlapping(heatmap.Point{X: 5, Y: 5}, heatmap.Point{X: 7, Y: 6}, heatmap.Size{W: 3, H: 3}), true)
		}},
		{"overlapping 不相邻", func() error {
			return expect(heatmap.Overlapping(heatmap.Point{X: 5, Y: 5}, heatmap.Point{X: 9, Y: 9}, heatmap.Size{W: 3, H: 3}), false)
		}},
		{"cluster_point 新建簇", func() error {
			got := heatmap.ClusterPoint(heatmap.Point{X: 2, Y: 4}, nil, heatmap.Size{W: 10, H: 10})
			return expect(got, []heatmap.Cluster{{{X: 2, Y: 4}}})
		}},
		{"cluster_point 加入簇", func() error {
			clusters := []heatmap.Cluster{{{X: 2, Y: 4}}}
			got := heatmap.ClusterPoint(heatmap.Point{X: 5, Y: 6}, clusters, heatmap.Size{W: 10, H: 10})
			return expect(got, []heatmap.Cluster{{{X: 2, Y: 4}, {X: 5, Y: 6}}})
		}},
		{"cluster_point 远处新建簇", func() error {
			clusters := []heatmap.Cluster{{{X: 2, Y: 4}, {X: 5, Y: 6}}}
			got := heatmap.ClusterPoint(heatmap.Point{X: 20, Y: 20}, clusters, heatmap.Size{W: 10, H: 10})
			return expect(got, []heatmap.Cluster{{{X: 2, Y: 4}, {X: 5, Y: 6}}, {{X: 20, Y: 20}}})
		}},
		{"两个图块", checkTwoPatches},
	}
}

// checkTwoPatches 黑色背景上两个相同图块应得到两个确认结果
func checkTwoPatches() error {
	rng := rand.New(rand.NewSource(1))
	tpl := image.NewGray(image.Rect(0, 0, 10, 10))
	for i := range tpl.Pix {
		tpl.Pix[i] = uint8(rng.Intn(256))
	}

	src := image.NewGray(image.Rect(0, 0, 100, 100))
	draw.Draw(src, src.Bounds(), &image.Uniform{C: color.Black}, image.Point{}, draw.Src)
	want := []vision.Point{{X: 10, Y: 10}, {X: 60, Y: 60}}
	for _, p := range want {
		draw.Draw(src, image.Rect(p.X, p.Y, p.X+10, p.Y+10), tpl, image.Point{}, draw.Src)
	}

	source, err := vision.ImageToMat(src)
	if err != nil {
		return err
	}
	defer source.Close()
	search, err := vision.ImageToMat(tpl)
	if err != nil {
		return err
	}
	defer search.Close()

	results, _, err := vision.MultiMatch(source, search, vision.WithCutoff(0.9))
	if err != nil {
		return err
	}
	if len(results) != len(want) {
		return fmt.Errorf("期望 %d 个结果, 实际 %d", len(want), len(results))
	}
	for i, r := range results {
		if !r.Matched || r.Position != want[i] {
			return fmt.Errorf("结果 %d 错误: %s", i, r)
		}
	}
	return nil
}

func expect(got, want interface{}) error {
	if !reflect.DeepEqual(got, want) {
		return fmt.Errorf("got %v, want %v", got, want)
	}
	return nil
}
