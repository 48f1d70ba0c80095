package sqlinline

const QSelectIntegrationToken = `--sql 3b0e5d7a-58c1-4f0b-9d6e-2f4a7c81b9e2
select token
from integration_tokens
where provider = $1::text
  and token <> ''
limit 1;
`

// QUpsertIntegrationToken replaces the token and merges new properties into
// the stored ones.
const QUpsertIntegrationToken = `--sql a91f6c24-0d3e-4b7a-8c55-6e1d2f9b7a30
insert into integration_tokens (provider, token, properties)
values ($1::text, $2::text, coalesce($3::jsonb, '{}'::jsonb))
on conflict (provider) do update set
    token = excluded.token,
    properties = integration_tokens.properties || excluded.properties,
    updated_at = now();
`
