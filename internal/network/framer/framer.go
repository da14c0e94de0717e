package framer

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	network "github.com/lk2023060901/guess-hall-go/internal/network"
)

// Framer 抽象了基于文本行的打包/解包能力。
//
// 约定：
//   - 一帧数据为一条 UTF-8 文本消息加上结尾的 '\n'；
//   - 消息本身不允许包含 '\n'，'\r' 在读取侧被容忍并剔除；
//   - 流式传输下的拆包/粘包由读取侧的 bufio.Reader 负责拼装，
//     单次 Read 收到多条或半条消息都不影响帧边界。
type Framer interface {
	// WriteFrame 将一条消息打包为一帧并写入到 w 中。
	WriteFrame(w io.Writer, msg string) error

	// ReadFrame 从 r 中读取一帧数据并还原为消息。
	ReadFrame(r *bufio.Reader) (string, error)
}

// LineFramer 使用换行符作为帧边界。
// 适用于基于流的连接（如 TCP）上的人类可读文本协议。
type LineFramer struct {
	// MaxFrameSize 为允许的最大帧大小（不含换行符），单位字节。
	// 为 0 时使用默认值 defaultMaxFrameSize。
	MaxFrameSize int
}

const defaultMaxFrameSize = 4 * 1024 // 4KB

// NewLineFramer 创建一个换行分隔的帧编码器。
// maxFrameSize 为 0 时使用默认值。
func NewLineFramer(maxFrameSize int) *LineFramer {
	if maxFrameSize == 0 {
		maxFrameSize = defaultMaxFrameSize
	}
	return &LineFramer{
		MaxFrameSize: maxFrameSize,
	}
}

// WriteFrame 将消息编码为一行并写入。
func (f *LineFramer) WriteFrame(w io.Writer, msg string) error {
	if strings.ContainsRune(msg, '\n') {
		return fmt.Errorf("framer: message contains newline")
	}
	if len(msg) > f.effectiveMaxSize() {
		return fmt.Errorf("framer: frame size %d exceeds max %d: %w",
			len(msg), f.effectiveMaxSize(), network.ErrFrameTooLarge)
	}

	buf := make([]byte, 0, len(msg)+1)
	buf = append(buf, msg...)
	buf = append(buf, '\n')

	if _, err := w.Write(buf); err != nil {
		return fmt.Errorf("framer: write frame failed: %w", err)
	}
	return nil
}

// ReadFrame 从流中读取一行并还原为消息。
//
// 说明：
//   - 读取过程中对超长行立即报错，而不是静默截断；
//   - 结尾的 "\r\n" 与 "\n" 均被接受。
func (f *LineFramer) ReadFrame(r *bufio.Reader) (string, error) {
	maxSize := f.effectiveMaxSize()

	var sb strings.Builder
	for {
		chunk, isPrefix, err := r.ReadLine()
		if err != nil {
			return "", fmt.Errorf("framer: read frame failed: %w", err)
		}
		if sb.Len()+len(chunk) > maxSize {
			return "", fmt.Errorf("framer: frame size exceeds max %d: %w",
				maxSize, network.ErrFrameTooLarge)
		}
		sb.Write(chunk)
		if !isPrefix {
			break
		}
	}

	// ReadLine 只处理 "\r\n" 与 "\n"，残留的单个 '\r' 在这里剔除。
	return strings.TrimSuffix(sb.String(), "\r"), nil
}

func (f *LineFramer) effectiveMaxSize() int {
	if f == nil || f.MaxFrameSize == 0 {
		return defaultMaxFrameSize
	}
	return f.MaxFrameSize
}
