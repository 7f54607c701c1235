package service

// Page 分页信息；Number 总是落在 [1, NumPages] 内
type Page struct {
	Number      int   `json:"number"`
	NumPages    int   `json:"num_pages"`
	Count       int64 `json:"count"`
	PageSize    int   `json:"page_size"`
	HasNext     bool  `json:"has_next"`
	HasPrevious bool  `json:"has_previous"`
}

// NewPage 越界页码收敛到最近的有效页；没有数据时仍有一页
func NewPage(requested int, count int64, size int) Page {
	if size < 1 {
		size = 1
	}
	numPages := int((count + int64(size) - 1) / int64(size))
	if numPages < 1 {
		numPages = 1
	}
	if requested < 1 {
		requested = 1
	}
	if requested > numPages {
		requested = numPages
	}
	return Page{
		Number:      requested,
		NumPages:    numPages,
		Count:       count,
		PageSize:    size,
		HasNext:     requested < numPages,
		HasPrevious: requested > 1,
	}
}

func (p Page) Offset() int { return (p.Number - 1) * p.PageSize }
