package mapping

import (
	"errors"
	"fmt"

	"github.com/hanpama/gqlexec/internal/gqlerrors"
	language "github.com/hanpama/gqlexec/internal/language"
)

func badRequestf(pos *language.Position, format string, args ...any) gqlerrors.GraphQLError {
	return gqlerrors.New(gqlerrors.KindBadRequest, format, args...).Located(pos)
}

func inputErrorf(pos *language.Position, format string, args ...any) gqlerrors.GraphQLError {
	return gqlerrors.New(gqlerrors.KindInputError, format, args...).Located(pos)
}

// locate converts err into a GraphQLError carrying pos, keeping the kind and
// location of errors that already have them.
func locate(err error, pos *language.Position) error {
	var ge gqlerrors.GraphQLError
	if errors.As(err, &ge) {
		if len(ge.Locations) == 0 {
			return ge.Located(pos)
		}
		return ge
	}
	return inputErrorf(pos, "%s", err.Error())
}

// errorSet accumulates mapping errors, dropping repeats of the same message at
// the same location. Polymorphic expansion visits shared items once per
// concrete type and would otherwise report them several times.
type errorSet struct {
	seen map[string]struct{}
	list []gqlerrors.GraphQLError
}

func (s *errorSet) add(err error) {
	var ge gqlerrors.GraphQLError
	if !errors.As(err, &ge) {
		ge = gqlerrors.New(gqlerrors.KindBadRequest, "%s", err.Error())
	}
	key := ge.Message
	for _, loc := range ge.Locations {
		key += fmt.Sprintf("@%d:%d", loc.Line, loc.Column)
	}
	if s.seen == nil {
		s.seen = map[string]struct{}{}
	}
	if _, ok := s.seen[key]; ok {
		return
	}
	s.seen[key] = struct{}{}
	s.list = append(s.list, ge)
}
