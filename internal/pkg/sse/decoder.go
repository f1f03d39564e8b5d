package sse

import (
	"bufio"
	"bytes"
	"io"
	"strings"
)

// RawEvent 从上游 SSE 流解析出的一条原始事件
type RawEvent struct {
	Type string
	Data []byte
}

// Decoder 逐条解析 text/event-stream 响应体
type Decoder struct {
	scanner *bufio.Scanner
}

// NewDecoder 创建解析器
func NewDecoder(r io.Reader) *Decoder {
	sc := bufio.NewScanner(r)
	// 单条事件可能携带较长的增量内容,放大缓冲区
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	return &Decoder{scanner: sc}
}

// Next 返回下一条完整事件,流结束时返回 io.EOF
func (d *Decoder) Next() (*RawEvent, error) {
	eventType := "message"
	var data []string
	sawField := false

	for d.scanner.Scan() {
		line := strings.TrimRight(d.scanner.Text(), "\r")

		// 空行表示一条事件结束
		if line == "" {
			if sawField && len(data) > 0 {
				return &RawEvent{
					Type: eventType,
					Data: []byte(strings.Join(data, "\n")),
				}, nil
			}
			// 没有 data 字段的事件丢弃,继续读下一条
			eventType = "message"
			data = nil
			sawField = false
			continue
		}

		// 注释行
		if strings.HasPrefix(line, ":") {
			continue
		}

		field, value := splitField(line)
		switch field {
		case "event":
			eventType = value
			sawField = true
		case "data":
			data = append(data, value)
			sawField = true
		default:
			// id / retry 等字段不参与事件重建
		}
	}

	if err := d.scanner.Err(); err != nil {
		return nil, err
	}

	// 流在空行前被截断,剩余数据仍作为一条事件交付
	if sawField && len(data) > 0 {
		ev := &RawEvent{
			Type: eventType,
			Data: []byte(strings.Join(data, "\n")),
		}
		d.scanner = bufio.NewScanner(bytes.NewReader(nil))
		return ev, nil
	}

	return nil, io.EOF
}

func splitField(line string) (field, value string) {
	idx := strings.IndexByte(line, ':')
	if idx < 0 {
		return line, ""
	}
	field = line[:idx]
	value = line[idx+1:]
	// 规范规定冒号后的单个空格不属于值
	value = strings.TrimPrefix(value, " ")
	return field, value
}
