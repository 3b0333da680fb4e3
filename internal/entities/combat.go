package entities

// EntityTypeEnemy is the core.Entity type tag for spawned enemies
const EntityTypeEnemy = "enemy"

// Enemy is one spawned hostile in an encounter
type Enemy struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	CurrentHP   int32  `json:"current_hp"`
	MaxHP       int32  `json:"max_hp"`
	ArmorClass  int32  `json:"armor_class"`
	AttackBonus int32  `json:"attack_bonus"`
	DamageDice  string `json:"damage_dice"`
	XPValue     int32  `json:"xp_value"`
	LootTable   string `json:"loot_table"`
}

// GetID implements core.Entity
func (e *Enemy) GetID() string { return e.ID }

// GetType implements core.Entity
func (e *Enemy) GetType() string { return EntityTypeEnemy }

// IsDead reports whether the enemy has dropped to 0 HP
func (e *Enemy) IsDead() bool { return e.CurrentHP <= 0 }

// Initiative side values, rolled once when the encounter starts
type Initiative struct {
	Player int32 `json:"player"`
	Enemy  int32 `json:"enemy"`
}

// CombatEncounter is one active combat instance. The zero value is the
// inactive state.
type CombatEncounter struct {
	Active     bool       `json:"active"`
	Round      int32      `json:"round"`
	Initiative Initiative `json:"initiative"`
	Enemies    []*Enemy   `json:"enemies"`
}

// LivingEnemies returns the enemies still above 0 HP
func (e *CombatEncounter) LivingEnemies() []*Enemy {
	var living []*Enemy
	for _, enemy := range e.Enemies {
		if !enemy.IsDead() {
			living = append(living, enemy)
		}
	}
	return living
}

// AllDefeated reports whether every enemy is at 0 HP
func (e *CombatEncounter) AllDefeated() bool {
	return len(e.LivingEnemies()) == 0
}

// AttackOutcome is the immutable record of one attack resolution. The
// narrator receives these as mechanical ground truth and has no authority
// to alter them.
type AttackOutcome struct {
	Attacker   string `json:"attacker"`
	Defender   string `json:"defender"`
	Roll       int32  `json:"roll"`
	Bonus      int32  `json:"bonus"`
	Total      int32  `json:"total"`
	TargetAC   int32  `json:"target_ac"`
	IsHit      bool   `json:"is_hit"`
	IsCritical bool   `json:"is_critical"`
	IsFumble   bool   `json:"is_fumble"`
	Damage     int32  `json:"damage"`
	HPBefore   int32  `json:"hp_before"`
	HPAfter    int32  `json:"hp_after"`
	TargetDead bool   `json:"target_dead"`
}
