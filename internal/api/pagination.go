package api

import "strconv"

const (
	minPageSize = 10
	maxPageSize = 500
)

// Page 分页结果
type Page struct {
	Page       int
	PageSize   int
	TotalRows  int
	TotalPages int
	Start      int // 切片起始下标（含）
	End        int // 切片结束下标（不含）
}

// Paginate 计算分页
// pageSize 限制在 [10, 500]；page 至少为 1，超出末页时取末页；总页数至少为 1。
func Paginate(total, page, pageSize int) Page {
	if pageSize < minPageSize {
		pageSize = minPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	if total < 0 {
		total = 0
	}

	totalPages := (total + pageSize - 1) / pageSize
	if totalPages < 1 {
		totalPages = 1
	}
	if page < 1 {
		page = 1
	}
	if page > totalPages {
		page = totalPages
	}

	start := (page - 1) * pageSize
	end := start + pageSize
	if start > total {
		start = total
	}
	if end > total {
		end = total
	}

	return Page{
		Page:       page,
		PageSize:   pageSize,
		TotalRows:  total,
		TotalPages: totalPages,
		Start:      start,
		End:        end,
	}
}

// queryInt 解析整数查询参数，缺失或非法时返回默认值
func queryInt(raw string, def int) int {
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return v
}
