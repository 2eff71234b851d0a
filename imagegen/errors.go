package imagegen

import "errors"

var errNoGenerator = errors.New("no image generator configured")
