package manager

import (
	"github.com/sirupsen/logrus"

	"docscan/logging"
)

var log *logrus.Logger

func init() {
	log = logging.GetLogger()
}
