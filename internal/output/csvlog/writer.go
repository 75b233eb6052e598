// Package csvlog 实现按日期分文件的异步 CSV 时间序列写入。
// 文件命名 funding_data_YYYY-MM-DD.csv，新文件写入表头，旧文件只追加；
// 乱序或重复时间戳按原样追加，读取时再排序，确保已有记录永不被改写。
// 使用带缓冲的 channel 实现热路径的非阻塞写入。
package csvlog

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"synthetic-funding-tracker/internal/core/model"
	"synthetic-funding-tracker/internal/util/fastparse"
)

// FilePrefix 数据文件名前缀
const FilePrefix = "funding_data_"

// DateLayout 文件名中的日期格式
const DateLayout = "2006-01-02"

// header CSV 表头，列顺序即持久化契约
var header = []string{"timestamp", "spot_price", "perp_price", "funding_rate", "price_divergence"}

// FileName 生成指定日期的数据文件路径
// 参数 dir: 数据目录
// 参数 date: 日期（取其本地日历日）
func FileName(dir string, date time.Time) string {
	return filepath.Join(dir, FilePrefix+date.Format(DateLayout)+".csv")
}

type opType int

const (
	opWrite opType = iota
	opFlush
	opClose
)

type op struct {
	typ  opType
	obs  model.Observation
	done chan error
}

// Writer 异步 CSV 写入器
// Write 只负责投递，实际编码、按日分文件与文件 I/O 在后台 goroutine 完成。
type Writer struct {
	// dir 数据目录
	dir string
	// ch 操作通道
	ch chan op

	closeOnce sync.Once
	closeErr  error
	closed    int32

	sendMu sync.Mutex

	wg sync.WaitGroup
}

// NewWriter 创建 CSV 写入器
// 参数 dir: 数据目录（不存在时自动创建）
// 参数 bufferSize: 写入缓冲区大小（channel capacity）
func NewWriter(dir string, bufferSize int) (*Writer, error) {
	if bufferSize <= 0 {
		bufferSize = 1000
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("创建数据目录失败: %w", err)
	}

	w := &Writer{
		dir: dir,
		ch:  make(chan op, bufferSize),
	}

	w.wg.Add(1)
	go w.loop()

	return w, nil
}

// Write 异步追加一条观测记录
func (w *Writer) Write(obs model.Observation) error {
	if w == nil {
		return fmt.Errorf("writer 为空")
	}
	if atomic.LoadInt32(&w.closed) == 1 {
		return fmt.Errorf("writer 已关闭")
	}
	w.sendMu.Lock()
	defer w.sendMu.Unlock()
	if atomic.LoadInt32(&w.closed) == 1 {
		return fmt.Errorf("writer 已关闭")
	}
	w.ch <- op{typ: opWrite, obs: obs}
	return nil
}

// Flush 强制 flush 文件缓冲区
func (w *Writer) Flush() error {
	if w == nil {
		return nil
	}
	if atomic.LoadInt32(&w.closed) == 1 {
		return nil
	}
	w.sendMu.Lock()
	defer w.sendMu.Unlock()
	if atomic.LoadInt32(&w.closed) == 1 {
		return nil
	}
	done := make(chan error, 1)
	w.ch <- op{typ: opFlush, done: done}
	return <-done
}

// Close 关闭写入器（会先 flush）
func (w *Writer) Close() error {
	if w == nil {
		return nil
	}
	w.closeOnce.Do(func() {
		atomic.StoreInt32(&w.closed, 1)
		w.sendMu.Lock()
		defer w.sendMu.Unlock()
		done := make(chan error, 1)
		w.ch <- op{typ: opClose, done: done}
		w.closeErr = <-done
		close(w.ch)
	})
	w.wg.Wait()
	return w.closeErr
}

// dayFile 当前打开的按日数据文件
type dayFile struct {
	date string
	f    *os.File
	bw   *bufio.Writer
	cw   *csv.Writer
}

func (d *dayFile) flush() error {
	if d == nil {
		return nil
	}
	d.cw.Flush()
	if err := d.cw.Error(); err != nil {
		return err
	}
	return d.bw.Flush()
}

func (d *dayFile) close() error {
	if d == nil {
		return nil
	}
	err := d.flush()
	if cerr := d.f.Close(); err == nil {
		err = cerr
	}
	return err
}

func (w *Writer) loop() {
	defer w.wg.Done()

	var cur *dayFile
	defer func() { _ = cur.close() }()

	reply := func(err error, done chan error) {
		if done != nil {
			done <- err
		}
	}

	for req := range w.ch {
		switch req.typ {
		case opWrite:
			df, err := w.fileFor(cur, req.obs.Timestamp)
			if err != nil {
				continue
			}
			if df != cur {
				_ = cur.close()
				cur = df
			}
			_ = cur.cw.Write(encodeRecord(req.obs))
		case opFlush:
			reply(cur.flush(), req.done)
		case opClose:
			err := cur.close()
			cur = nil
			reply(err, req.done)
			return
		}
	}
}

// fileFor 获取观测时间戳所属日期的数据文件
// 日期未变化时直接复用当前文件；切日时由调用方关闭旧文件。
func (w *Writer) fileFor(cur *dayFile, ts time.Time) (*dayFile, error) {
	date := ts.Format(DateLayout)
	if cur != nil && cur.date == date {
		return cur, nil
	}

	path := FileName(w.dir, ts)

	// 先判断是否为新文件，决定是否补写表头
	_, statErr := os.Stat(path)
	isNew := os.IsNotExist(statErr)

	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, err
	}

	bw := bufio.NewWriterSize(f, 1<<16) // 64KB buffer
	cw := csv.NewWriter(bw)

	df := &dayFile{date: date, f: f, bw: bw, cw: cw}
	if isNew {
		if err := cw.Write(header); err != nil {
			_ = f.Close()
			return nil, err
		}
	}
	return df, nil
}

// encodeRecord 将观测记录编码为 CSV 行
func encodeRecord(obs model.Observation) []string {
	return []string{
		obs.Timestamp.Format(model.TimestampLayout),
		fastparse.FormatFloat(obs.SpotPrice, -1),
		fastparse.FormatFloat(obs.PerpPrice, -1),
		fastparse.FormatFloat(obs.FundingRate, -1),
		fastparse.FormatFloat(obs.DivergencePct, -1),
	}
}
