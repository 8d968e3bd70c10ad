package esologs

// Table data types accepted by the report table operation.
const (
	TableSummary    = "Summary"
	TableDamageDone = "DamageDone"
	TableHealing    = "Healing"
	TableBuffs      = "Buffs"
)

const zonesQuery = `
query Zones {
  worldData {
    zones {
      id
      name
      encounters {
        id
        name
      }
    }
  }
}`

// characterRankings is a JSON scalar upstream, so the query selects it
// whole and the client decodes the raw value.
const rankingsQuery = `
query TopRankings($zoneID: Int!, $encounterID: Int!, $limit: Int) {
  worldData {
    encounter(id: $encounterID) {
      characterRankings(zoneID: $zoneID, limit: $limit, metric: dps)
    }
  }
}`

const reportQuery = `
query Report($code: String!) {
  reportData {
    report(code: $code) {
      code
      title
      startTime
      endTime
      gameVersion
      fights {
        id
        name
        startTime
        endTime
        difficulty
        kill
      }
    }
  }
}`

const tableQuery = `
query Table($code: String!, $fightIDs: [Int], $startTime: Float, $endTime: Float, $dataType: TableDataType!, $sourceID: Int, $combatantInfo: Boolean) {
  reportData {
    report(code: $code) {
      table(fightIDs: $fightIDs, startTime: $startTime, endTime: $endTime, dataType: $dataType, sourceID: $sourceID, hostilityType: Friendlies, includeCombatantInfo: $combatantInfo)
    }
  }
}`
