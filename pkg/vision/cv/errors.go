package cv

import (
	"errors"
	"fmt"

	"github.com/zoeyai/multimatch/pkg/vision/heatmap"
)

var (
	// ErrPrecondition 输入图像不满足匹配前提（尺寸、通道数等）
	ErrPrecondition = errors.New("输入图像不满足匹配条件")
	// ErrInvalidParameter 匹配参数无效
	ErrInvalidParameter = errors.New("匹配参数无效")
	// ErrTooManyCandidates 阈值化后候选点过多，匹配中止
	ErrTooManyCandidates = heatmap.ErrTooManyCandidates
)

// ImageSizeError 图像尺寸错误
type ImageSizeError struct {
	SourceSize [2]int
	SearchSize [2]int
}

func (e *ImageSizeError) Error() string {
	return fmt.Sprintf("搜索图像尺寸大于源图像: 模板 %dx%d, 源图像 %dx%d",
		e.SearchSize[0], e.SearchSize[1], e.SourceSize[0], e.SourceSize[1])
}

// Is 支持 errors.Is(err, ErrPrecondition)
func (e *ImageSizeError) Is(target error) bool {
	return target == ErrPrecondition
}

// PreconditionError 输入图像无效
type PreconditionError struct {
	Reason string
}

func (e *PreconditionError) Error() string {
	return "输入图像不满足匹配条件: " + e.Reason
}

// Is 支持 errors.Is(err, ErrPrecondition)
func (e *PreconditionError) Is(target error) bool {
	return target == ErrPrecondition
}
