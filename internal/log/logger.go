package log

import "go.uber.org/zap"

var base = zap.NewNop()

// Init builds the process logger. prod switches JSON encoding and info level.
func Init(prod bool) (*zap.Logger, error) {
	var (
		l   *zap.Logger
		err error
	)
	if prod {
		l, err = zap.NewProduction()
	} else {
		l, err = zap.NewDevelopment()
	}
	if err != nil {
		return nil, err
	}
	base = l
	return l, nil
}

func L() *zap.Logger        { return base }
func S() *zap.SugaredLogger { return base.Sugar() }
func Sync()                 { _ = base.Sync() }
