package research

import (
	"fmt"

	"auto_blog_publisher/blog"
)

func errNoSearcher(kind string) error {
	return fmt.Errorf("no %s searcher configured", kind)
}

func errEmpty(what string) error {
	return fmt.Errorf("%w: %s returned no results", blog.ErrUpstreamUnavailable, what)
}
