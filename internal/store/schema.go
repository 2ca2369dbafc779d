package store

// Schema defines the SQLite database schema, run at open.
const Schema = `
CREATE TABLE IF NOT EXISTS airports (
	iata_code TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	country_code TEXT NOT NULL,
	latitude REAL,
	longitude REAL,
	is_active INTEGER NOT NULL DEFAULT 1,
	source TEXT NOT NULL DEFAULT 'ourairports'
);

CREATE INDEX IF NOT EXISTS idx_airports_country ON airports(country_code);

CREATE TABLE IF NOT EXISTS weather_hourly (
	iata_code TEXT NOT NULL,
	dt_utc TEXT NOT NULL,
	source TEXT NOT NULL,
	temperature_c REAL,
	windspeed_ms REAL,
	precipitation_mm REAL,
	visibility_m REAL,
	PRIMARY KEY (iata_code, dt_utc, source)
);

CREATE TABLE IF NOT EXISTS weather_risk_daily (
	iata_code TEXT NOT NULL,
	day TEXT NOT NULL,
	source TEXT NOT NULL,
	risk_score REAL NOT NULL,
	risk_level TEXT NOT NULL,
	PRIMARY KEY (iata_code, day, source)
);

CREATE TABLE IF NOT EXISTS flights (
	flight_id INTEGER PRIMARY KEY AUTOINCREMENT,
	dep_iata TEXT NOT NULL,
	arr_iata TEXT NOT NULL,
	sched_dep TEXT NOT NULL,
	sched_arr TEXT NOT NULL,
	status TEXT NOT NULL DEFAULT 'scheduled',
	delay_min INTEGER NOT NULL DEFAULT 0,
	seats INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_flights_dep_status ON flights(dep_iata, status);

CREATE TABLE IF NOT EXISTS amadeus_offer_requests (
	request_id INTEGER PRIMARY KEY AUTOINCREMENT,
	origin_iata TEXT NOT NULL,
	dest_iata TEXT NOT NULL,
	depart_date TEXT NOT NULL,
	adults INTEGER NOT NULL,
	status TEXT NOT NULL,
	offers_cnt INTEGER NOT NULL DEFAULT 0,
	error_msg TEXT,
	UNIQUE (origin_iata, dest_iata, depart_date, adults)
);

CREATE TABLE IF NOT EXISTS amadeus_flight_offers (
	offer_id TEXT PRIMARY KEY,
	request_id INTEGER NOT NULL,
	source TEXT NOT NULL,
	price_total REAL NOT NULL,
	currency TEXT NOT NULL,
	stops INTEGER NOT NULL,
	duration_min INTEGER NOT NULL,
	carrier_code TEXT,
	FOREIGN KEY (request_id) REFERENCES amadeus_offer_requests(request_id)
);

CREATE INDEX IF NOT EXISTS idx_offers_request ON amadeus_flight_offers(request_id);
`
