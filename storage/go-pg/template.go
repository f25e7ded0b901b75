package gopg

import (
	"github.com/go-pg/pg"

	"github.com/interactive-solutions/go-campaign"
)

func NewTemplateRepository(db *pg.DB) campaign.TemplateRepository {
	return &templateRepository{
		db: db,
	}
}

type templateWrapper struct {
	TableName struct{} `sql:"campaign_templates, alias:ct" json:"-"`

	*campaign.Template
}

type templateRepository struct {
	db *pg.DB
}

func (repo *templateRepository) Get(id string) (campaign.Template, error) {
	var wrapped templateWrapper

	err := repo.db.Model(&wrapped).
		Where("template_id = ?", id).
		Select()

	if err != nil {
		if err == pg.ErrNoRows {
			return campaign.Template{}, campaign.TemplateNotFoundErr
		}

		return campaign.Template{}, err
	}

	return *wrapped.Template, nil
}
