package csvlog

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"sort"
	"time"

	"synthetic-funding-tracker/internal/core/model"
	"synthetic-funding-tracker/internal/util/fastparse"
)

// LoadDays 读取最近 N 天的观测记录（含当天）
// 参数 dir: 数据目录
// 参数 days: 天数，<=0 时返回空序列
// 参数 now: 当前时间（确定日期范围）
// 返回: 按时间戳升序排序的观测序列；缺失的日期文件直接跳过。
// 单行解析失败只跳过该行，不中断整体加载。
func LoadDays(dir string, days int, now time.Time) ([]model.Observation, error) {
	var out []model.Observation

	for i := days - 1; i >= 0; i-- {
		date := now.AddDate(0, 0, -i)
		obs, err := LoadFile(FileName(dir, date))
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, err
		}
		out = append(out, obs...)
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].Timestamp.Before(out[j].Timestamp)
	})
	return out, nil
}

// LoadFile 读取单个数据文件的全部观测记录
// 参数 path: 数据文件路径
// 返回: 文件内顺序的观测序列；文件不存在时返回 os.IsNotExist 错误。
func LoadFile(path string) ([]model.Observation, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = len(header)

	var out []model.Observation
	first := true
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			// 跳过坏行，保留已解析记录
			continue
		}
		if first {
			first = false
			if rec[0] == header[0] {
				continue
			}
		}

		obs, err := decodeRecord(rec)
		if err != nil {
			continue
		}
		out = append(out, obs)
	}

	return out, nil
}

// decodeRecord 解析一行 CSV 记录
func decodeRecord(rec []string) (model.Observation, error) {
	if len(rec) != len(header) {
		return model.Observation{}, fmt.Errorf("列数不匹配: %d", len(rec))
	}

	ts, err := time.ParseInLocation(model.TimestampLayout, rec[0], time.Local)
	if err != nil {
		return model.Observation{}, fmt.Errorf("解析时间戳失败: %w", err)
	}

	spot, err := fastparse.ParseFloat(rec[1])
	if err != nil {
		return model.Observation{}, fmt.Errorf("解析 spot_price 失败: %w", err)
	}
	perp, err := fastparse.ParseFloat(rec[2])
	if err != nil {
		return model.Observation{}, fmt.Errorf("解析 perp_price 失败: %w", err)
	}
	rate, err := fastparse.ParseFloat(rec[3])
	if err != nil {
		return model.Observation{}, fmt.Errorf("解析 funding_rate 失败: %w", err)
	}
	div, err := fastparse.ParseFloat(rec[4])
	if err != nil {
		return model.Observation{}, fmt.Errorf("解析 price_divergence 失败: %w", err)
	}

	return model.Observation{
		Timestamp:     ts,
		SpotPrice:     spot,
		PerpPrice:     perp,
		FundingRate:   rate,
		DivergencePct: div,
	}, nil
}
