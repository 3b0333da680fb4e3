package catalog

import (
	_ "embed"

	"gopkg.in/yaml.v3"

	"github.com/fableforge/rules-api/internal/errors"
)

//go:embed data/items.yaml
var itemsYAML []byte

//go:embed data/bestiary.yaml
var bestiaryYAML []byte

//go:embed data/loot_tables.yaml
var lootTablesYAML []byte

type itemsFile struct {
	Items []ItemDefinition `yaml:"items"`
}

type bestiaryFile struct {
	Enemies []StatBlock `yaml:"enemies"`
}

type lootTablesFile struct {
	Tables map[string]LootTable `yaml:"tables"`
}

// New loads the embedded content and builds the indexes
func New() (*Catalog, error) {
	var items itemsFile
	if err := yaml.Unmarshal(itemsYAML, &items); err != nil {
		return nil, errors.Wrap(err, "failed to parse item catalog")
	}

	var bestiary bestiaryFile
	if err := yaml.Unmarshal(bestiaryYAML, &bestiary); err != nil {
		return nil, errors.Wrap(err, "failed to parse bestiary")
	}

	var tables lootTablesFile
	if err := yaml.Unmarshal(lootTablesYAML, &tables); err != nil {
		return nil, errors.Wrap(err, "failed to parse loot tables")
	}

	c := &Catalog{
		items:       make(map[string]ItemDefinition, len(items.Items)),
		itemsByName: make(map[string]string, len(items.Items)),
		bestiary:    make(map[string]StatBlock, len(bestiary.Enemies)),
		lootTables:  make(map[string]LootTable, len(tables.Tables)),
	}

	for _, item := range items.Items {
		id := NormalizeKey(item.ID)
		if id == "" {
			return nil, errors.Internal("item catalog contains an entry without an ID")
		}
		if _, exists := c.items[id]; exists {
			return nil, errors.Internalf("duplicate item ID %q in catalog", id)
		}
		c.items[id] = item
		c.itemsByName[NormalizeKey(item.Name)] = id
	}

	for _, block := range bestiary.Enemies {
		key := NormalizeKey(block.Key)
		if key == "" {
			key = NormalizeKey(block.Name)
		}
		if key == "" {
			return nil, errors.Internal("bestiary contains an entry without a key or name")
		}
		block.Key = key
		c.bestiary[key] = block
	}

	for key, table := range tables.Tables {
		c.lootTables[NormalizeKey(key)] = table
	}

	if err := c.validate(); err != nil {
		return nil, err
	}

	return c, nil
}
