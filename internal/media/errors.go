//////////////////////////////////////////////////////////////////////////////
//
// Media errors
//
// Copyright 2019 Lanikai Labs LLC. All rights reserved.
//
//////////////////////////////////////////////////////////////////////////////

package media

import "errors"

var (
	errNotSubscribed = errors.New("media.Flow: not subscribed")
	errNotSupported  = errors.New("not supported") // "can't do" items
)
