package app

import (
	"gorm.io/gorm"

	repos "github.com/yungbote/neurobridge-psychometrics/internal/data/repos/psychometrics"
	"github.com/yungbote/neurobridge-psychometrics/internal/platform/logger"
)

type Repos struct {
	AbilityProfile repos.AbilityProfileRepo
	Response       repos.ResponseRepo
	ItemParameters repos.ItemParametersRepo
	LedgerEvent    repos.LedgerEventRepo
}

func wireRepos(db *gorm.DB, log *logger.Logger) Repos {
	log.Info("Wiring repos...")
	return Repos{
		AbilityProfile: repos.NewAbilityProfileRepo(db, log),
		Response:       repos.NewResponseRepo(db, log),
		ItemParameters: repos.NewItemParametersRepo(db, log),
		LedgerEvent:    repos.NewLedgerEventRepo(db, log),
	}
}
