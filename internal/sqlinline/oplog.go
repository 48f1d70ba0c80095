package sqlinline

const QInsertOperationLog = `--sql 72709872-737e-4a8b-b049-32e80a71f918
insert into operation_logs (user_id, operation, target_id, detail, ip, country, user_agent, created_at)
values ($1::text, $2::text, $3::text, coalesce($4::jsonb, '{}'::jsonb), $5::text, $6::text, $7::text, now());
`
