package gopg

import (
	"github.com/go-pg/pg"

	"github.com/interactive-solutions/go-campaign"
)

func NewDefinitionRepository(db *pg.DB) campaign.DefinitionRepository {
	return &definitionRepository{
		db: db,
	}
}

type definitionWrapper struct {
	TableName struct{} `sql:"campaign_automation_definitions, alias:cad" json:"-"`

	*campaign.Definition
}

type definitionRepository struct {
	db *pg.DB
}

func (repo *definitionRepository) Get(id string) (campaign.Definition, error) {
	var wrapped definitionWrapper

	err := repo.db.Model(&wrapped).
		Where("id = ?", id).
		Select()

	if err != nil {
		if err == pg.ErrNoRows {
			return campaign.Definition{}, campaign.DefinitionNotFoundErr
		}

		return campaign.Definition{}, err
	}

	return *wrapped.Definition, nil
}

func (repo *definitionRepository) GetByTrigger(event campaign.TriggerEvent) ([]campaign.Definition, error) {
	var definitions []campaign.Definition
	var wrappedDefinitions []definitionWrapper

	err := repo.db.Model(&wrappedDefinitions).
		Where("trigger = ?", event).
		Where("enabled = true").
		Select()

	if err != nil {
		if err == pg.ErrNoRows {
			return definitions, nil
		}

		return definitions, err
	}

	for _, d := range wrappedDefinitions {
		definitions = append(definitions, *d.Definition)
	}

	return definitions, nil
}

func (repo *definitionRepository) GetAll() ([]campaign.Definition, error) {
	var definitions []campaign.Definition
	var wrappedDefinitions []definitionWrapper

	if err := repo.db.Model(&wrappedDefinitions).Select(); err != nil {
		if err == pg.ErrNoRows {
			return definitions, nil
		}

		return definitions, err
	}

	for _, d := range wrappedDefinitions {
		definitions = append(definitions, *d.Definition)
	}

	return definitions, nil
}
