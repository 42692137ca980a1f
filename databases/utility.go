package databases

import (
	"strconv"

	"go.mongodb.org/mongo-driver/mongo/options"
)

// MaxPageSize caps the limit a caller may ask for
const MaxPageSize = 100

type mongoPaginate struct {
	limit int64
	page  int64
}

func newMongoPaginate(limit, page int) *mongoPaginate {
	if limit > MaxPageSize {
		limit = MaxPageSize
	}
	if page < 1 {
		page = 1
	}
	return &mongoPaginate{
		limit: int64(limit),
		page:  int64(page),
	}
}

func (mp *mongoPaginate) getPaginatedOpts() *options.FindOptions {
	if mp.limit <= 0 {
		return options.Find()
	}
	l := mp.limit
	skip := mp.page*mp.limit - mp.limit
	return options.Find().SetLimit(l).SetSkip(skip)
}

// PageOptions returns find options for the limit and page query values.
// Missing or invalid values mean no paging, page numbers start at 1.
func PageOptions(limit, page string) *options.FindOptions {
	l, err := strconv.Atoi(limit)
	if err != nil {
		return options.Find()
	}
	p, err := strconv.Atoi(page)
	if err != nil {
		p = 1
	}
	return newMongoPaginate(l, p).getPaginatedOpts()
}
